package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID generates a record identifier from the capture time plus a
// short random suffix for uniqueness within one second.
func NewID(now time.Time) string {
	return fmt.Sprintf("dr-%s-%s", now.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// NewGroupID derives a group identifier from the capture time, domain,
// and title, so all members of one buildPhases call share it.
func NewGroupID(now time.Time, domain, title string) string {
	sum := sha256.Sum256([]byte(now.UTC().Format(time.RFC3339Nano) + "|" + domain + "|" + title))
	return "grp-" + hex.EncodeToString(sum[:6])
}

// PhaseID suffixes a record ID with its group-kind marker, guaranteeing
// uniqueness among siblings: _p{seq} for phase chains, _b{seq} for
// bundles.
func PhaseID(baseID string, groupType GroupType, seq int) string {
	switch groupType {
	case GroupBundle:
		return fmt.Sprintf("%s_b%d", baseID, seq)
	default:
		return fmt.Sprintf("%s_p%d", baseID, seq)
	}
}
