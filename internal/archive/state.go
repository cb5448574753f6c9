package archive

import (
	"encoding/json"
	"sort"
)

// SeenSet is the monotonically growing set of canonical track keys that have
// been archived or attempted and found unresolvable. Membership is the
// single source of truth for "already handled"; keys are never removed.
//
// Persisted as a sorted JSON list of strings.
type SeenSet struct {
	keys map[string]struct{}
}

// NewSeenSet returns an empty seen-set, the default for a fresh deployment
// or a corrupt record.
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

func (s *SeenSet) Add(key string) {
	s.keys[key] = struct{}{}
}

func (s *SeenSet) Contains(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *SeenSet) Len() int {
	return len(s.keys)
}

func (s *SeenSet) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(s.keys))
	for key := range s.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return json.Marshal(keys)
}

func (s *SeenSet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	s.keys = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		s.keys[key] = struct{}{}
	}
	return nil
}

// VolumeState points at the playlist currently accepting appends.
//
// Volume only ever increases. An empty PlaylistID means a volume must be
// created on the next run.
type VolumeState struct {
	PlaylistID string `json:"current_playlist_id"`
	Volume     int    `json:"current_volume"`
}

// NewVolumeState returns the default state: volume 1, no active playlist.
func NewVolumeState() *VolumeState {
	return &VolumeState{Volume: 1}
}
