package race

import (
	"fmt"
	"strings"
	"sync"
)

// Member identifies one participant inside a team. Removal uses exact
// (DisplayName, ID) value matching.
type Member struct {
	DisplayName string
	ID          string
}

// Team is a co-op entry sharing one clock slot, keyed by its leader's
// runner id.
type Team struct {
	Name    string
	Members []Member
}

// Roster owns a race's teams and the alias table resolving any
// participant to the roster entry that records their time. Every runner
// aliases to itself; every secondary team member aliases to its leader.
type Roster struct {
	mu      sync.Mutex
	teams   map[string]*Team
	order   []string
	aliases map[string]string
}

func NewRoster() *Roster {
	return &Roster{
		teams:   make(map[string]*Team),
		aliases: make(map[string]string),
	}
}

// JoinAsPrimary creates a one-member team led by runnerID and seeds its
// self-alias.
func (t *Roster) JoinAsPrimary(runnerID, displayName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.teams[runnerID]; !ok {
		t.order = append(t.order, runnerID)
	}
	t.teams[runnerID] = &Team{
		Name:    displayName,
		Members: []Member{{DisplayName: displayName, ID: runnerID}},
	}
	t.aliases[runnerID] = runnerID
}

// AttachSecondary appends a member to the leader's team. Any subsequent
// action by memberID resolves to the leader's roster entry.
func (t *Roster) AttachSecondary(leaderID, memberID, displayName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	team, ok := t.teams[leaderID]
	if !ok {
		return ErrParticipantNotInRace
	}
	team.Members = append(team.Members, Member{DisplayName: displayName, ID: memberID})
	t.aliases[memberID] = leaderID
	return nil
}

// ResolvePrimary maps any participant to the runner id whose entry records
// their time.
func (t *Roster) ResolvePrimary(participantID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	primary, ok := t.aliases[participantID]
	if !ok {
		return "", ErrParticipantNotInRace
	}
	return primary, nil
}

// IsLeader reports whether participantID leads a team.
func (t *Roster) IsLeader(participantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.teams[participantID]
	return ok
}

// IsParticipant reports whether participantID appears in the alias table,
// as a runner or a secondary team member.
func (t *Roster) IsParticipant(participantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.aliases[participantID]
	return ok
}

// Detach removes the participant's alias and, if present, the exact
// (displayName, id) pair from whichever team lists it. Detaching a
// participant who is not on any member list is not an error.
func (t *Roster) Detach(participantID, displayName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.aliases, participantID)
	want := Member{DisplayName: displayName, ID: participantID}
	for _, leader := range t.order {
		team := t.teams[leader]
		for i, m := range team.Members {
			if m == want {
				team.Members = append(team.Members[:i], team.Members[i+1:]...)
				return
			}
		}
	}
}

// RemoveTeam deletes the team led by leaderID together with the aliases
// of every member still pointing at it, so no alias outlives its roster
// entry.
func (t *Roster) RemoveTeam(leaderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	team, ok := t.teams[leaderID]
	if !ok {
		return
	}
	for _, m := range team.Members {
		if t.aliases[m.ID] == leaderID {
			delete(t.aliases, m.ID)
		}
	}
	delete(t.teams, leaderID)
	for i, id := range t.order {
		if id == leaderID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Members returns a copy of the leader's member list.
func (t *Roster) Members(leaderID string) ([]Member, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	team, ok := t.teams[leaderID]
	if !ok {
		return nil, ErrParticipantNotInRace
	}
	return append([]Member(nil), team.Members...), nil
}

// AllMembers returns every member of every team in roster order.
func (t *Roster) AllMembers() []Member {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Member
	for _, leader := range t.order {
		out = append(out, t.teams[leader].Members...)
	}
	return out
}

// TeamReport renders the team listing for the room.
func (t *Roster) TeamReport() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	b.WriteString("Teams:\n")
	for _, leader := range t.order {
		team := t.teams[leader]
		names := make([]string, len(team.Members))
		for i, m := range team.Members {
			names[i] = m.DisplayName
		}
		fmt.Fprintf(&b, "%s: %s\n", team.Name, strings.Join(names, ", "))
	}
	return b.String()
}
