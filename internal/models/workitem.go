package models

// Work item status values. Legacy hyphenated spellings still appear in data
// imported from the old tracker; normalization happens at read time, never
// at rest.
const (
	WorkStatusNotStarted = "not_started"
	WorkStatusInProgress = "in_progress"
	WorkStatusCompleted  = "completed"
)

// Work type keys used in Site and sub-site work item maps.
const (
	WorkTypeCivil         = "civil"
	WorkTypeTelecom       = "telecom"
	WorkTypeSurvey        = "survey"
	WorkTypeDismantling   = "dismantling"
	WorkTypeStoreOperator = "store_operator"
)

// DefaultWorkTypes lists the work categories a new sub-site starts with.
var DefaultWorkTypes = []string{
	WorkTypeCivil,
	WorkTypeTelecom,
	WorkTypeSurvey,
	WorkTypeDismantling,
	WorkTypeStoreOperator,
}

// WorkItem is the per-work-type record embedded in a Site or an Activity
// sub-site. It has no identity and no lifecycle of its own; it is created
// and destroyed with its owner and is only ever addressed through the
// owner's work item map.
type WorkItem struct {
	Required      bool   `json:"required"`
	Status        string `json:"status"`
	AssignedUsers []uint `json:"assigned_users"`
	Notes         string `json:"notes"`
}

// WorkItemMap maps a work type key (civil, telecom, ...) to its work item.
type WorkItemMap map[string]WorkItem

// SubSite is the site-shaped structure embedded in an Activity. A
// dismantling activity has only a source; relocation and COW activities
// carry a destination as well. Sub-sites are owned by composition: they are
// serialized with the activity row and never referenced by id.
type SubSite struct {
	Name      string      `json:"name"`
	WorkItems WorkItemMap `json:"work_items"`
}

// NewSubSite returns a sub-site pre-populated with the default work types,
// all optional and not started.
func NewSubSite(name string) SubSite {
	items := make(WorkItemMap, len(DefaultWorkTypes))
	for _, wt := range DefaultWorkTypes {
		items[wt] = WorkItem{Status: WorkStatusNotStarted}
	}
	return SubSite{Name: name, WorkItems: items}
}
