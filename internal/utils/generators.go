package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const base36Upper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// now is swapped in tests.
var now = time.Now

// randomBase36 returns n random characters from [0-9A-Z].
func randomBase36(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36Upper)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms; fall back to the clock
			out[i] = base36Upper[time.Now().UnixNano()%int64(len(base36Upper))]
			continue
		}
		out[i] = base36Upper[idx.Int64()]
	}
	return string(out)
}

// GeneratePaymentReference builds PAY_<unix-ms>_<6 chars>. Not guaranteed unique.
func GeneratePaymentReference() string {
	return fmt.Sprintf("PAY_%d_%s", now().UnixMilli(), randomBase36(6))
}

// GenerateTicketNumber builds the display code FC<last 6 ms digits>_<2 chars>.
// Collisions are possible; nothing checks for them.
func GenerateTicketNumber() string {
	ms := strconv.FormatInt(now().UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("FC%s_%s", ms, randomBase36(2))
}

// GenerateTicketID creates a random UUID for a ticket row.
func GenerateTicketID() string {
	return uuid.NewString()
}

func GenerateAccessCode() string {
	return "access_" + randomBase36(12)
}
