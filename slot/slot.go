// Package slot defines the SlotParser and SlotTable external
// collaborators: parsing a slot reference string into its structured
// form, and associating in-memory representatives with the slot
// strings that name them.
package slot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Ref is the parsed structure of a slot reference: its id, its type
// tag, and whether it names a virtual object.
type Ref struct {
	ID      string
	Type    string
	Virtual bool
}

// Parser parses a slot reference string into a Ref.
type Parser interface {
	Parse(slot string) (Ref, error)
}

// DefaultParser implements the vom vref grammar:
//
//	o+<kindID>/<seq>   a virtual object instance reference
//	o-<id>             a non-virtual (ordinary, presence) object reference
//
// Any other shape is rejected; this is a reference implementation of
// the external SlotParser collaborator, not a general-purpose slot
// grammar for a full vat runtime.
type DefaultParser struct{}

func (DefaultParser) Parse(s string) (Ref, error) {
	switch {
	case strings.HasPrefix(s, "o+"):
		rest := s[len("o+"):]
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Ref{}, errors.Errorf("slot: malformed virtual object ref %q", s)
		}
		if _, err := strconv.ParseUint(parts[1], 10, 64); err != nil {
			return Ref{}, errors.Wrapf(err, "slot: malformed sequence in %q", s)
		}
		return Ref{ID: parts[0], Type: "object", Virtual: true}, nil
	case strings.HasPrefix(s, "o-"):
		id := s[len("o-"):]
		if id == "" {
			return Ref{}, errors.Errorf("slot: malformed object ref %q", s)
		}
		return Ref{ID: id, Type: "object", Virtual: false}, nil
	default:
		return Ref{}, errors.Errorf("slot: unrecognized ref %q", s)
	}
}

// InstanceKey formats a virtual object instance key from a kind id and
// a monotonic sequence number: the canonical o+<kindID>/<seq> form.
func InstanceKey(kindID string, seq uint64) string {
	return fmt.Sprintf("o+%s/%d", kindID, seq)
}
