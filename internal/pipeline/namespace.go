package pipeline

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Namespace allocates the run-scoped scratch artifact names. The token
// combines a compact UTC timestamp with a random nonce so concurrent runs
// against one persistent workspace never collide; every scratch name the
// run creates matches Pattern().
type Namespace struct {
	token string
}

func NewNamespace(now time.Time) Namespace {
	ts, _ := strconv.ParseInt(now.UTC().Format("20060102150405"), 10, 64)
	id := uuid.New()
	nonce := hex.EncodeToString(id[:4])
	return Namespace{token: strconv.FormatInt(ts, 16) + nonce}
}

func (n Namespace) Token() string { return n.token }

// Division is the per-category division subset artifact.
func (n Namespace) Division(i int) string {
	return fmt.Sprintf("tmp_div_%d_%s", i, n.token)
}

// Slice is the per-category stamped target slice artifact.
func (n Namespace) Slice(i int) string {
	return fmt.Sprintf("tmp_cat_%d_%s", i, n.token)
}

// Replica is the working copy of the target features.
func (n Namespace) Replica() string { return "tmp_rep_" + n.token }

// Accumulation is the shared artifact every partition appends into.
func (n Namespace) Accumulation() string { return "tmp_out_" + n.token }

// Uncategorized is the leftover-geometry batch artifact.
func (n Namespace) Uncategorized() string { return "tmp_unc_fea_" + n.token }

// Dissolved is the deduplicated output artifact.
func (n Namespace) Dissolved() string { return "tmp_ded_" + n.token }

// Pattern matches every artifact this run created and nothing else.
func (n Namespace) Pattern() string { return "tmp_*" + n.token + "*" }
