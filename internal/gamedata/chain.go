package gamedata

import (
	"gm8detect/internal/exebuf"
)

// Commit finishes a branch whose Match succeeded. Its outcome is final for
// the whole dispatch.
type Commit func(img *exebuf.Image, log Logger) (GameVersion, error)

// Branch is one entry of the detection order. Match returns a nil Commit
// when the branch does not apply.
type Branch struct {
	Name  string
	Match func(img *exebuf.Image, log Logger) (Commit, error)
}

// Run evaluates branches in order and commits to the first one that matches.
// There is no backtracking: a failing Commit is returned as is.
func Run(branches []Branch, img *exebuf.Image, log Logger) (GameVersion, error) {
	log = OrDiscard(log)
	for _, b := range branches {
		commit, err := b.Match(img, log)
		if err != nil {
			return 0, err
		}
		if commit == nil {
			continue
		}
		log.Logf("Detection committed to %s", b.Name)
		return commit(img, log)
	}
	return 0, ErrUnknownFormat
}

// ProtectedBranch builds a branch that probes for a protector and hands the
// settings to then. The settings are used for exactly one commit.
func ProtectedBranch(name string, probe Probe, then func(img *exebuf.Image, log Logger, s Settings) (GameVersion, error)) Branch {
	return Branch{
		Name: name,
		Match: func(img *exebuf.Image, log Logger) (Commit, error) {
			s, err := probe.Probe(img)
			if err != nil || s == nil {
				return nil, err
			}
			settings := *s
			return func(img *exebuf.Image, log Logger) (GameVersion, error) {
				return then(img, log, settings)
			}, nil
		},
	}
}

// StandardBranch builds a branch that reports v when d accepts the image.
func StandardBranch(name string, d Detector, v GameVersion) Branch {
	return Branch{
		Name: name,
		Match: func(img *exebuf.Image, log Logger) (Commit, error) {
			ok, err := d.Check(img, log)
			if err != nil || !ok {
				return nil, err
			}
			return func(*exebuf.Image, Logger) (GameVersion, error) { return v, nil }, nil
		},
	}
}
