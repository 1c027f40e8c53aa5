package audit

import (
	"fmt"
	"time"
)

// FormatMintChange describes a mint's state transition. prev is nil when
// the mint was not seen before.
func FormatMintChange(prev *Mint, cur Mint) string {
	name := cur.Name
	if name == "" {
		name = cur.URL
	}

	if prev == nil {
		return fmt.Sprintf("now tracking mint %s (%s), state %s", name, cur.URL, cur.State)
	}
	return fmt.Sprintf("mint %s changed state: %s -> %s", name, prev.State, cur.State)
}

// FormatSwap describes a single swap result. mints resolves mint ids to
// their listing entries.
func FormatSwap(mints map[string]Mint, swap Swap) string {
	name := swap.MintID
	if mint, ok := mints[swap.MintID]; ok && mint.Name != "" {
		name = mint.Name
	}

	took := (time.Duration(swap.TimeTaken) * time.Millisecond).Round(time.Millisecond)

	if swap.State == "ok" {
		return fmt.Sprintf("swap of %d sats via %s succeeded in %s (fee %d)", swap.Amount, name, took, swap.Fee)
	}
	return fmt.Sprintf("swap of %d sats via %s failed after %s: %s", swap.Amount, name, took, swap.Error)
}
