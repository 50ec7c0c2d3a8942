package profile

import (
	"image/png"
	"sort"
)

// Profile defines PNG encoding parameters. Every profile is lossless;
// they differ only in how hard zlib works.
type Profile struct {
	Name        string
	Compression png.CompressionLevel
}

// Built-in profiles.
var profiles = map[string]Profile{
	"best":    {Name: "best", Compression: png.BestCompression},
	"default": {Name: "default", Compression: png.DefaultCompression},
	"fast":    {Name: "fast", Compression: png.BestSpeed},
	"none":    {Name: "none", Compression: png.NoCompression},
}

// DefaultName is the profile used when none is configured.
const DefaultName = "best"

// Get returns a profile by name. Falls back to best if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles[DefaultName]
	p.Name = name // preserve requested name
	return p
}

// Lookup returns the named profile and whether it exists.
func Lookup(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Names lists built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
