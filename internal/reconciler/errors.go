package reconciler

import "errors"

// ErrPassInProgress is returned by Scheduler.RunOnce when another pass holds the guard.
var ErrPassInProgress = errors.New("reconciliation pass already in progress")
