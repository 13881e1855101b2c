package lib

import "strconv"

// Status is the lifecycle phase of the bottle as seen by the calling process.
type Status int

const (
	NoBottlePresent Status = iota
	BottleStarting
	BottleStarted
	BottleStartedNotReady
	BottleShutdown
	InsideBottleNotReady
	InsideBottle
)

func (s Status) String() string {
	switch s {
	case NoBottlePresent:
		return "NoBottlePresent"
	case BottleStarting:
		return "BottleStarting"
	case BottleStarted:
		return "BottleStarted"
	case BottleStartedNotReady:
		return "BottleStartedNotReady"
	case BottleShutdown:
		return "BottleShutdown"
	case InsideBottleNotReady:
		return "InsideBottleNotReady"
	case InsideBottle:
		return "InsideBottle"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// BottleStatus is a snapshot of the bottle state taken by a single probe.
// It is only valid at the instant it was computed.
type BottleStatus struct {
	Status     Status
	SystemdPid int
}

// StartedWithinBottle reports whether the caller runs inside the bottle.
func (b BottleStatus) StartedWithinBottle() bool {
	return b.Status == InsideBottle || b.Status == InsideBottleNotReady
}

// BottleExistsInContext reports whether a started bottle exists and the
// caller is outside of it.
func (b BottleStatus) BottleExistsInContext() bool {
	return b.Status == BottleStarted || b.Status == BottleStartedNotReady
}

func (b BottleStatus) BottleExists() bool {
	return b.StartedWithinBottle() || b.BottleExistsInContext()
}

func (b BottleStatus) BottleWillExist() bool {
	return b.Status == BottleStarting
}

func (b BottleStatus) BottleStartingUp() bool {
	return b.Status == BottleStarting
}

func (b BottleStatus) BottleClosingDown() bool {
	return b.Status == BottleShutdown
}

// BottleError reports whether systemd exists but has not reached the
// running state.
func (b BottleStatus) BottleError() bool {
	return b.Status == BottleStartedNotReady || b.Status == InsideBottleNotReady
}

// Namespaces describes a namespace-entry prefix for a command: the command
// runs inside the namespaces of the process Pid.
type Namespaces struct {
	Pid   int
	Mount bool
	PID   bool
}

// Command captures a program invocation as an argument vector.
type Command struct {
	Command string
	Args    []string

	// Enter, when set, runs the command inside another process's namespaces.
	Enter *Namespaces

	// Quiet discards the command's standard error.
	Quiet bool
}
