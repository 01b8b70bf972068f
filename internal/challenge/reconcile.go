package challenge

import "github.com/mrled/suns/dnsrenew/internal/model"

// Plan is what has to change at a name so exactly one record carries the desired content
type Plan struct {
	// ToDelete are surplus records; they are independent of each other
	ToDelete []model.DNSRecord
	// ToUpsert is the surviving record with its new content
	ToUpsert model.DNSRecord
	// Create is true when ToUpsert does not exist yet
	Create bool
}

// Reconcile decides how to converge existing onto a single record matching desired.
//
//   - no records: create desired
//   - one record: update it in place, overwriting content and TTL
//   - several: keep the first, update it, delete the rest
//
// Which record survives among duplicates is not significant.
func Reconcile(existing []model.DNSRecord, desired model.DNSRecord) Plan {
	if len(existing) == 0 {
		desired.ID = ""
		return Plan{ToUpsert: desired, Create: true}
	}

	keep := existing[0]
	keep.Content = desired.Content
	keep.TTL = desired.TTL

	var surplus []model.DNSRecord
	if len(existing) > 1 {
		surplus = append(surplus, existing[1:]...)
	}

	return Plan{ToDelete: surplus, ToUpsert: keep}
}
