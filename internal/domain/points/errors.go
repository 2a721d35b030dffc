package points

import "errors"

// ErrNotParticipant is returned when a game in a team's list does not involve the team.
var ErrNotParticipant = errors.New("team does not play in game")
