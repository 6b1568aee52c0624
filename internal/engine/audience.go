package engine

import (
	"log"
	"sort"

	"github.com/aetherdial/dial-engine/internal/model"
)

// ResolveAudience turns a campaign's declarative target into the deduplicated
// set of lead IDs it will contact, sorted ascending for a stable dispatch
// order. A lead is included when one of its groups is targeted or when it is
// targeted individually. Leads marked DNC are always excluded.
//
// Unknown group or lead IDs in the target are skipped and logged rather than
// rejected: a deleted group must not break the campaign.
func ResolveAudience(allLeads []model.Lead, allGroups []model.LeadGroup, target model.CampaignTarget) []int {
	knownGroups := make(map[int]bool, len(allGroups))
	for _, g := range allGroups {
		knownGroups[g.ID] = true
	}

	targetGroups := make(map[int]bool, len(target.GroupIDs))
	for _, gid := range target.GroupIDs {
		if !knownGroups[gid] {
			log.Printf("⚠️ target references unknown group %d, skipping", gid)
			continue
		}
		targetGroups[gid] = true
	}

	leadsByID := make(map[int]model.Lead, len(allLeads))
	included := make(map[int]bool)

	for _, lead := range allLeads {
		leadsByID[lead.ID] = lead
		if lead.Status == model.LeadStatusDNC {
			continue
		}
		for _, gid := range lead.GroupIDs {
			if targetGroups[gid] {
				included[lead.ID] = true
				break
			}
		}
	}

	for _, lid := range target.LeadIDs {
		lead, ok := leadsByID[lid]
		if !ok {
			log.Printf("⚠️ target references unknown lead %d, skipping", lid)
			continue
		}
		if lead.Status == model.LeadStatusDNC {
			continue
		}
		included[lid] = true
	}

	audience := make([]int, 0, len(included))
	for id := range included {
		audience = append(audience, id)
	}
	sort.Ints(audience)
	return audience
}
