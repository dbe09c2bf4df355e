package race

import "errors"

var (
	// ErrRaceAlreadyStarted is returned when an operation requires a race
	// that has not started yet.
	ErrRaceAlreadyStarted = errors.New("race already started")
	// ErrRaceNotStarted is returned when an operation requires a running race.
	ErrRaceNotStarted = errors.New("race not started")
	// ErrRaceLocked is returned when adding runners to a locked race.
	ErrRaceLocked = errors.New("race is locked")
	// ErrRaceNotLockable is returned when locking a race that cannot be locked.
	ErrRaceNotLockable = errors.New("race is not lockable")
	// ErrParticipantNotInRace is returned when an id does not resolve to a
	// roster entry.
	ErrParticipantNotInRace = errors.New("participant not in race")
	// ErrEmptyRoster is returned when starting a race with no runners.
	ErrEmptyRoster = errors.New("race has no runners")
)
