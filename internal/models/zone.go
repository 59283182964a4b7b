package models

// ZoneKind identifies a storage zone family. The numeric values are stored
// in the database and must not change.
type ZoneKind int

const (
	ZoneUnknown              ZoneKind = 0
	ZoneCourseDocuments      ZoneKind = 3
	ZoneCourseShared         ZoneKind = 4
	ZoneGroupShared          ZoneKind = 5
	ZoneUserWorks            ZoneKind = 6
	ZoneCourseWorks          ZoneKind = 7
	ZoneCourseMarks          ZoneKind = 8
	ZoneBriefcase            ZoneKind = 9
	ZoneGroupDocuments       ZoneKind = 11
	ZoneGroupMarks           ZoneKind = 13
	ZoneUserAssignments      ZoneKind = 14
	ZoneCourseAssignments    ZoneKind = 15
	ZoneDegreeDocuments      ZoneKind = 17
	ZoneCenterDocuments      ZoneKind = 19
	ZoneInstitutionDocuments ZoneKind = 21
	ZoneDegreeShared         ZoneKind = 22
	ZoneCenterShared         ZoneKind = 23
	ZoneInstitutionShared    ZoneKind = 24
	ZoneCourseTeachers       ZoneKind = 25
	ZoneGroupTeachers        ZoneKind = 26
	ZoneProjectDocuments     ZoneKind = 27
	ZoneProjectAssessment    ZoneKind = 28
)

var zoneKindNames = map[ZoneKind]string{
	ZoneCourseDocuments:      "course_documents",
	ZoneCourseShared:         "course_shared",
	ZoneGroupShared:          "group_shared",
	ZoneUserWorks:            "user_works",
	ZoneCourseWorks:          "course_works",
	ZoneCourseMarks:          "course_marks",
	ZoneBriefcase:            "briefcase",
	ZoneGroupDocuments:       "group_documents",
	ZoneGroupMarks:           "group_marks",
	ZoneUserAssignments:      "user_assignments",
	ZoneCourseAssignments:    "course_assignments",
	ZoneDegreeDocuments:      "degree_documents",
	ZoneCenterDocuments:      "center_documents",
	ZoneInstitutionDocuments: "institution_documents",
	ZoneDegreeShared:         "degree_shared",
	ZoneCenterShared:         "center_shared",
	ZoneInstitutionShared:    "institution_shared",
	ZoneCourseTeachers:       "course_teachers",
	ZoneGroupTeachers:        "group_teachers",
	ZoneProjectDocuments:     "project_documents",
	ZoneProjectAssessment:    "project_assessment",
}

// String returns a stable lowercase name for logging and API payloads.
func (k ZoneKind) String() string {
	if name, ok := zoneKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Known reports whether the kind belongs to the stored vocabulary.
func (k ZoneKind) Known() bool {
	_, ok := zoneKindNames[k]
	return ok
}

// personalKinds are zones nested inside a shared context and scoped to one
// user via the secondary owner code.
var personalKinds = map[ZoneKind]struct{}{
	ZoneUserAssignments: {},
	ZoneUserWorks:       {},
	ZoneBriefcase:       {},
}

// Personal reports whether the kind requires a secondary owner code.
func (k ZoneKind) Personal() bool {
	_, ok := personalKinds[k]
	return ok
}

// Zone addresses one storage scope: a kind plus the code of the hierarchy
// node owning it, and for personal zones the code of the user inside it.
type Zone struct {
	Kind           ZoneKind `json:"kind" db:"zone_kind"`
	OwnerCode      int64    `json:"ownerCode" db:"owner_code"`
	SecondaryOwner int64    `json:"secondaryOwner,omitempty" db:"secondary_owner"`
}

// Valid checks the zone against the stored vocabulary. A personal zone
// without its user code is invalid; so is any zone without an owner.
func (z Zone) Valid() bool {
	if !z.Kind.Known() || z.OwnerCode <= 0 {
		return false
	}
	if z.Kind.Personal() && z.SecondaryOwner <= 0 {
		return false
	}
	return true
}

// Each dependent table historically collapses related kinds differently.
// The translations are kept as one lookup table per store, never merged.

var lastVisitKinds = map[ZoneKind]ZoneKind{
	ZoneUserAssignments: ZoneUserWorks,
}

var expandedFolderKinds = map[ZoneKind]ZoneKind{
	ZoneProjectAssessment: ZoneProjectDocuments,
}

// ZoneKindForIndex is the identity: the main index keeps every kind distinct.
func ZoneKindForIndex(k ZoneKind) ZoneKind { return k }

// ZoneKindForLastVisit collapses the personal assignment zone into the
// personal works zone, as the last-visit table stores them under one kind.
func ZoneKindForLastVisit(k ZoneKind) ZoneKind {
	if mapped, ok := lastVisitKinds[k]; ok {
		return mapped
	}
	return k
}

// ZoneKindForExpandedFolders collapses project assessment into project
// documents for the expanded-folder table.
func ZoneKindForExpandedFolders(k ZoneKind) ZoneKind {
	if mapped, ok := expandedFolderKinds[k]; ok {
		return mapped
	}
	return k
}

// ZoneKindGroup names a set of related kinds used by roll-up queries.
type ZoneKindGroup string

const (
	GroupCourseZones   ZoneKindGroup = "course"
	GroupGroupZones    ZoneKindGroup = "group"
	GroupPersonalZones ZoneKindGroup = "personal"
	GroupBriefcases    ZoneKindGroup = "briefcase"
	GroupDocumentZones ZoneKindGroup = "documents"
	GroupSharedZones   ZoneKindGroup = "shared"
)

var zoneKindGroups = map[ZoneKindGroup][]ZoneKind{
	GroupCourseZones: {
		ZoneCourseDocuments, ZoneCourseTeachers, ZoneCourseShared,
		ZoneCourseAssignments, ZoneCourseWorks, ZoneCourseMarks,
	},
	GroupGroupZones: {
		ZoneGroupDocuments, ZoneGroupTeachers, ZoneGroupShared, ZoneGroupMarks,
	},
	GroupPersonalZones: {ZoneUserAssignments, ZoneUserWorks},
	GroupBriefcases:    {ZoneBriefcase},
	GroupDocumentZones: {
		ZoneCourseDocuments, ZoneGroupDocuments, ZoneDegreeDocuments,
		ZoneCenterDocuments, ZoneInstitutionDocuments, ZoneProjectDocuments,
	},
	GroupSharedZones: {
		ZoneCourseShared, ZoneGroupShared, ZoneDegreeShared,
		ZoneCenterShared, ZoneInstitutionShared,
	},
}

// KindsInGroup returns the kinds belonging to a named group, or nil for an
// unknown group.
func KindsInGroup(g ZoneKindGroup) []ZoneKind {
	return zoneKindGroups[g]
}
