// Package idx issues the ULIDs used as request ids. A ULID leads with its
// millisecond timestamp, so ids from one process sort in issue order.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in canonical form: 26 upper case Crockford base32 characters.
type ID string

const Zero ID = ""

var ErrInvalid = errors.New("idx: invalid ulid")

// Monotonic entropy is not safe for concurrent use.
var gen = struct {
	sync.Mutex
	entropy *ulid.MonotonicEntropy
}{entropy: ulid.Monotonic(rand.Reader, 0)}

func New() ID { return NewAt(time.Now()) }

// NewAt issues an id stamped with t. Ids issued for the same millisecond
// still increase.
func NewAt(t time.Time) ID {
	gen.Lock()
	u := ulid.MustNew(ulid.Timestamp(t), gen.entropy)
	gen.Unlock()
	return ID(u.String())
}

// Parse accepts a caller supplied id. Surrounding space and lower case are
// tolerated; the result is always canonical.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return Zero, ErrInvalid
	}
	return ID(u.String()), nil
}

func (id ID) IsZero() bool { return id == Zero }
func (id ID) String() string { return string(id) }

// Time returns the embedded timestamp in UTC, or the zero time for an id that
// does not parse.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
