package gaps

import (
	"encoding/json"
	"strings"
	"unicode"
)

// Mandatory gaps are tracked in every interview until the conversation covers them.
var Mandatory = []string{
	"Work authorization/location eligibility",
	"Role understanding and alignment with career goals",
}

// Entry is one outstanding gap.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Set is an immutable ordered collection of gaps keyed by normalized name.
// Mutating methods return a new Set.
type Set struct {
	entries []Entry
}

// Initialize seeds a set from the analysis gap names and adds every mandatory
// gap that no seeded name already covers.
func Initialize(names []string) Set {
	var set Set
	for _, name := range names {
		set = set.add(Entry{Name: name})
	}

	for _, mandatory := range Mandatory {
		if !set.covers(mandatory) {
			set = set.add(Entry{Name: mandatory})
		}
	}

	return set
}

// FromEntries rebuilds a set from stored entries without adding mandatory gaps.
func FromEntries(entries []Entry) Set {
	var set Set
	for _, entry := range entries {
		set = set.add(entry)
	}
	return set
}

// Remove drops every gap whose name equals one of names or occurs in it as whole words.
func (s Set) Remove(names ...string) Set {
	removals := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			removals = append(removals, name)
		}
	}
	if len(removals) == 0 {
		return s
	}

	kept := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if matchesAny(entry.Name, removals) {
			continue
		}
		kept = append(kept, entry)
	}

	return Set{entries: kept}
}

// Describe sets the description of an existing gap. Unknown names are ignored.
func (s Set) Describe(name, description string) Set {
	key := normalize(name)
	entries := s.Entries()
	for i := range entries {
		if normalize(entries[i].Name) == key {
			entries[i].Description = strings.TrimSpace(description)
		}
	}
	return Set{entries: entries}
}

// Snapshot returns the gap names in insertion order.
func (s Set) Snapshot() []string {
	names := make([]string, len(s.entries))
	for i, entry := range s.entries {
		names[i] = entry.Name
	}
	return names
}

func (s Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s Set) Len() int {
	return len(s.entries)
}

func (s Set) IsEmpty() bool {
	return len(s.entries) == 0
}

func (s Set) Contains(name string) bool {
	key := normalize(name)
	for _, entry := range s.entries {
		if normalize(entry.Name) == key {
			return true
		}
	}
	return false
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*s = FromEntries(entries)
	return nil
}

func (s Set) add(entry Entry) Set {
	entry.Name = strings.TrimSpace(entry.Name)
	entry.Description = strings.TrimSpace(entry.Description)
	if entry.Name == "" || s.Contains(entry.Name) {
		return s
	}

	entries := make([]Entry, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	return Set{entries: append(entries, entry)}
}

// covers reports whether some gap name contains name as whole words or is a
// known alias of it. Shorter names never cover a mandatory gap.
func (s Set) covers(name string) bool {
	for _, entry := range s.entries {
		if containsWords(entry.Name, name) || isAlias(entry.Name, name) {
			return true
		}
	}
	return false
}

func isAlias(alias, name string) bool {
	return normalize(alias) == normalize(AuthorizationGap) && normalize(name) == normalize(Mandatory[0])
}

func matchesAny(name string, removals []string) bool {
	key := normalize(name)
	for _, removal := range removals {
		if key == normalize(removal) || containsWords(removal, name) {
			return true
		}
	}
	return false
}

// normalize is the identity key of a gap name.
func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// containsWords reports whether needle occurs in text as a run of whole words,
// ignoring case and punctuation.
func containsWords(text, needle string) bool {
	n := words(needle)
	if n == "" {
		return false
	}
	return strings.Contains(" "+words(text)+" ", " "+n+" ")
}

func words(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
