package ocr

import "context"

// JobState models the lifecycle of an asynchronous recognition job.
type JobState string

const (
	JobSubmitted JobState = "submitted"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further state change will happen.
func (s JobState) Terminal() bool { return s == JobSucceeded || s == JobFailed }

// JobStatus is one poll response. Lines is only meaningful when State is JobSucceeded.
type JobStatus struct {
	State   JobState
	Lines   []Line
	Message string
}

// Provider is a text recognition service that works on submitted jobs.
type Provider interface {
	Name() string
	Submit(ctx context.Context, imageURL string) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (JobStatus, error)
}
