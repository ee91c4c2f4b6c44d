package errors

import "errors"

// Validation errors. Deterministic for a given input; callers fix the input, never retry.
var (
	ErrInvalidPositions    = errors.New("invalid finishing positions")
	ErrGrandTichuDisabled  = errors.New("grand tichu calls are disabled for this tournament")
	ErrInvalidParticipants = errors.New("invalid participants")
	ErrInvalidScores       = errors.New("invalid raw scores")
)

// State-conflict errors. The caller's view of the match is stale; refetch and retry once.
var (
	ErrMatchLocked      = errors.New("match is locked")
	ErrTooManyGames     = errors.New("match already has all games")
	ErrIncompleteMatch  = errors.New("match does not have all games yet")
	ErrAlreadyConfirmed = errors.New("team already confirmed the match")
	ErrNotConfirmed     = errors.New("team has not confirmed the match")
	ErrStaleGameNumber  = errors.New("game number does not match the next free slot")
	ErrGameNotFound     = errors.New("game not found")
)

// Lookup and ownership errors.
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotInMatch     = errors.New("team does not play in this match")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoundNotFound      = errors.New("round not found")
)

// ErrStoreUnavailable marks transient backend failures and is the only retryable class.
var ErrStoreUnavailable = errors.New("store unavailable")

// Auth.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTeamNotFound      = errors.New("team not found")
	ErrInvalidAccessCode = errors.New("invalid access code")
	ErrLoginThrottled    = errors.New("too many failed login attempts")
)

var (
	validationErrors = []error{ErrInvalidPositions, ErrGrandTichuDisabled, ErrInvalidParticipants, ErrInvalidScores}
	conflictErrors   = []error{ErrMatchLocked, ErrTooManyGames, ErrIncompleteMatch, ErrAlreadyConfirmed, ErrNotConfirmed, ErrStaleGameNumber, ErrGameNotFound}
	lookupErrors     = []error{ErrMatchNotFound, ErrTeamNotInMatch, ErrTournamentNotFound, ErrRoundNotFound}
)

func IsValidation(err error) bool {
	return isAny(err, validationErrors)
}

func IsConflict(err error) bool {
	return isAny(err, conflictErrors)
}

func IsNotFound(err error) bool {
	return isAny(err, lookupErrors)
}

// IsDomain reports whether err carries one of the sentinels above. Anything else coming out of
// a store call is an infrastructure failure.
func IsDomain(err error) bool {
	return IsValidation(err) || IsConflict(err) || IsNotFound(err) || IsRetryable(err)
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
