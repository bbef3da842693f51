package data

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

// Snapshot is the single record of current artist statistics. Its json
// encoding is read directly by the landing page, so the field names are
// fixed.
type Snapshot struct {
	// Spotify doesn't expose monthly listeners through its API. The
	// authenticated source fills this with the follower count; the scraper
	// reads it off the public artist page.
	MonthlyListeners int64 `json:"monthlyListeners"`
	Followers        int64 `json:"followers"`

	// Albums plus singles.
	Releases int64 `json:"releases"`

	// In [0, 100]. Only the authenticated source knows it.
	Popularity *int64 `json:"popularity,omitempty"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// Fields is whatever a single fetch managed to find out. A nil field was not
// produced by the fetch, and merging leaves the previous value in place.
type Fields struct {
	MonthlyListeners *int64
	Followers        *int64
	Releases         *int64
	Popularity       *int64
}

// Int returns a pointer to n, for building Fields.
func Int(n int64) *int64 { return &n }

// Empty reports whether the fetch produced nothing at all.
func (f Fields) Empty() bool {
	return f.MonthlyListeners == nil &&
		f.Followers == nil &&
		f.Releases == nil &&
		f.Popularity == nil
}

func (f Fields) String() string {
	show := func(p *int64) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *p)
	}
	return fmt.Sprintf("monthlyListeners=%s followers=%s releases=%s popularity=%s",
		show(f.MonthlyListeners), show(f.Followers), show(f.Releases), show(f.Popularity))
}

// valid drops values that could never be correct, so a bad fetch can't
// write a negative count or an out-of-range popularity.
func (f Fields) valid() Fields {
	nonNegative := func(p *int64) *int64 {
		if p == nil || *p < 0 {
			return nil
		}
		return Int(*p)
	}
	out := Fields{
		MonthlyListeners: nonNegative(f.MonthlyListeners),
		Followers:        nonNegative(f.Followers),
		Releases:         nonNegative(f.Releases),
		Popularity:       nonNegative(f.Popularity),
	}
	if out.Popularity != nil && *out.Popularity > 100 {
		out.Popularity = nil
	}
	return out
}

// Default is the snapshot we seed with when there's nothing usable on disk.
// The counts are placeholders; see scrape.DefaultPolicy for the values that
// replace them when a scrape comes back this low.
func Default() Snapshot {
	return Snapshot{
		MonthlyListeners: 100,
		Followers:        50,
		Releases:         1,
	}
}

// Fields returns the snapshot's values as a fully-populated Fields (except
// for Popularity, which stays nil if the snapshot doesn't have one).
func (s Snapshot) Fields() Fields {
	f := Fields{
		MonthlyListeners: Int(s.MonthlyListeners),
		Followers:        Int(s.Followers),
		Releases:         Int(s.Releases),
	}
	if s.Popularity != nil {
		f.Popularity = Int(*s.Popularity)
	}
	return f
}

// Merge lays the fetched fields over the snapshot. Only fields that are
// present in fetched replace the snapshot's values; LastUpdated is left
// alone, see Stamp.
func (s Snapshot) Merge(fetched Fields) Snapshot {
	merged := s.Fields()
	if err := mergo.Merge(&merged, fetched.valid(),
		mergo.WithOverride,
		mergo.WithoutDereference,
	); err != nil {
		// Both sides are the same concrete struct type.
		panic(fmt.Errorf("merging fields: %w", err))
	}

	out := Snapshot{
		MonthlyListeners: *merged.MonthlyListeners,
		Followers:        *merged.Followers,
		Releases:         *merged.Releases,
		LastUpdated:      s.LastUpdated,
	}
	if merged.Popularity != nil {
		out.Popularity = Int(*merged.Popularity)
	}
	return out
}

// Stamp sets LastUpdated, in UTC and at millisecond precision to match the
// ISO-8601 strings the page has always been given.
func (s Snapshot) Stamp(at time.Time) Snapshot {
	s.LastUpdated = at.UTC().Truncate(time.Millisecond)
	return s
}
