package extract

import "sync"

// CommandSet is the run-scoped set of commands that already produced a record.
// The orchestrator creates one per run and passes it to every Parse call;
// it is never persisted. It is safe for concurrent use.
type CommandSet struct {
	mu       sync.Mutex
	commands map[string]struct{}
}

// NewCommandSet creates an empty set.
func NewCommandSet() *CommandSet {
	return &CommandSet{commands: make(map[string]struct{})}
}

// Contains reports whether command has been recorded.
func (s *CommandSet) Contains(command string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.commands[command]
	return ok
}

// Add records command. It returns false if the command was already present.
func (s *CommandSet) Add(command string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commands[command]; ok {
		return false
	}
	s.commands[command] = struct{}{}
	return true
}

// Len returns the number of recorded commands.
func (s *CommandSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}
