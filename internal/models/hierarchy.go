package models

// HierarchyLevel identifies one level of the organizational tree the zones
// hang off. The hierarchy itself is owned by an external system; this
// service only reads its lookup tables.
type HierarchyLevel string

const (
	LevelSystem      HierarchyLevel = "system"
	LevelInstitution HierarchyLevel = "institution"
	LevelCenter      HierarchyLevel = "center"
	LevelDegree      HierarchyLevel = "degree"
	LevelCourse      HierarchyLevel = "course"
	LevelGroup       HierarchyLevel = "group"
	LevelProject     HierarchyLevel = "project"
)

// Valid reports whether the level is part of the known vocabulary.
func (l HierarchyLevel) Valid() bool {
	switch l {
	case LevelSystem, LevelInstitution, LevelCenter, LevelDegree,
		LevelCourse, LevelGroup, LevelProject:
		return true
	}
	return false
}

// HierarchyScope narrows a roll-up or search to the subtree under one node.
// A system scope has code zero and covers everything.
type HierarchyScope struct {
	Level HierarchyLevel `json:"level"`
	Code  int64          `json:"code"`
}

// HierarchyContext is the resolved human-readable placement of a search hit.
type HierarchyContext struct {
	InstitutionCode int64  `json:"institutionCode" db:"ins_cod"`
	Institution     string `json:"institution" db:"ins_name"`
	CenterCode      int64  `json:"centerCode" db:"ctr_cod"`
	Center          string `json:"center" db:"ctr_name"`
	DegreeCode      int64  `json:"degreeCode" db:"deg_cod"`
	Degree          string `json:"degree" db:"deg_name"`
	CourseCode      int64  `json:"courseCode" db:"crs_cod"`
	Course          string `json:"course" db:"crs_name"`
	GroupCode       int64  `json:"groupCode" db:"grp_cod"`
	Group           string `json:"group" db:"grp_name"`
}
