package matching

import (
	"sort"

	"bank-payments-backend/internal/models"

	"github.com/agnivade/levenshtein"
)

// Suggestion is a user whose variable symbol is close to a payment reference.
type Suggestion struct {
	User     models.User `json:"user"`
	Distance int         `json:"distance"`
}

// Suggest ranks users by edit distance between their variable symbol and the
// payment reference. It only feeds the manual-match screen; nothing it returns
// is ever committed automatically.
func Suggest(tx *models.BankPayment, users []models.User, maxDistance, limit int) []Suggestion {
	ref, err := Normalize(tx.PayerReference)
	if err != nil {
		return nil
	}

	var out []Suggestion
	for i := range users {
		sym, err := Normalize(users[i].Symbol())
		if err != nil {
			continue
		}
		dist := levenshtein.ComputeDistance(ref, sym)
		if dist > maxDistance {
			continue
		}
		out = append(out, Suggestion{User: users[i], Distance: dist})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].User.Email < out[j].User.Email
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
