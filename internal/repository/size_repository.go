package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openedu/filezone-api/internal/models"
)

// SizeRepository persists the per-zone size snapshots and answers roll-up
// queries across the organizational hierarchy. Snapshots are full-replace
// caches; the hierarchy lookup tables are owned by an external system and
// only joined against here.
type SizeRepository struct {
	db *sqlx.DB
}

// NewSizeRepository constructs the repository.
func NewSizeRepository(db *sqlx.DB) *SizeRepository {
	return &SizeRepository{db: db}
}

// Replace writes a fresh snapshot for the zone, overwriting any previous
// one.
func (r *SizeRepository) Replace(ctx context.Context, agg *models.ZoneSizeAggregate) error {
	if agg.ComputedAt.IsZero() {
		agg.ComputedAt = time.Now().UTC()
	}
	const query = `INSERT INTO zone_sizes (zone_kind, owner_code, secondary_owner, depth, folders, files, total_bytes, computed_at)
	VALUES (:zone_kind, :owner_code, :secondary_owner, :depth, :folders, :files, :total_bytes, :computed_at)
	ON CONFLICT (zone_kind, owner_code, secondary_owner) DO UPDATE SET
	  depth = EXCLUDED.depth,
	  folders = EXCLUDED.folders,
	  files = EXCLUDED.files,
	  total_bytes = EXCLUDED.total_bytes,
	  computed_at = EXCLUDED.computed_at`
	if _, err := r.db.NamedExecContext(ctx, query, agg); err != nil {
		return fmt.Errorf("replace zone size: %w", err)
	}
	return nil
}

// Get returns the cached snapshot for one zone, or nil when none was ever
// computed.
func (r *SizeRepository) Get(ctx context.Context, zone models.Zone) (*models.ZoneSizeAggregate, error) {
	const query = `SELECT zone_kind, owner_code, secondary_owner, depth, folders, files, total_bytes, computed_at
	FROM zone_sizes
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3`
	var agg models.ZoneSizeAggregate
	if err := r.db.GetContext(ctx, &agg, query, zone.Kind, zone.OwnerCode, zone.SecondaryOwner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get zone size: %w", err)
	}
	return &agg, nil
}

// DeleteZone drops the snapshots of the owner's zones of one kind.
func (r *SizeRepository) DeleteZone(ctx context.Context, kind models.ZoneKind, ownerCode int64) (int64, error) {
	const query = `DELETE FROM zone_sizes WHERE zone_kind = $1 AND owner_code = $2`
	res, err := r.db.ExecContext(ctx, query, kind, ownerCode)
	if err != nil {
		return 0, fmt.Errorf("delete zone sizes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deleted sizes: %w", err)
	}
	return affected, nil
}

// DeleteUserFromZone drops the snapshot of one user's personal sub-area.
func (r *SizeRepository) DeleteUserFromZone(ctx context.Context, zone models.Zone, userCode int64) error {
	const query = `DELETE FROM zone_sizes
	WHERE zone_kind = $1 AND owner_code = $2 AND secondary_owner = $3`
	if _, err := r.db.ExecContext(ctx, query, zone.Kind, zone.OwnerCode, userCode); err != nil {
		return fmt.Errorf("delete user zone size: %w", err)
	}
	return nil
}

// ownerClass tells which hierarchy level owns zones of a kind, which
// decides how snapshots join into the hierarchy chain during roll-ups.
type ownerClass int

const (
	ownedByCourse ownerClass = iota
	ownedByCoursePersonal
	ownedByGroup
	ownedByDegree
	ownedByCenter
	ownedByInstitution
	ownedByProject
	ownedByUser
)

func classOf(kind models.ZoneKind) ownerClass {
	switch kind {
	case models.ZoneUserAssignments, models.ZoneUserWorks:
		return ownedByCoursePersonal
	case models.ZoneGroupShared, models.ZoneGroupDocuments, models.ZoneGroupMarks, models.ZoneGroupTeachers:
		return ownedByGroup
	case models.ZoneDegreeDocuments, models.ZoneDegreeShared:
		return ownedByDegree
	case models.ZoneCenterDocuments, models.ZoneCenterShared:
		return ownedByCenter
	case models.ZoneInstitutionDocuments, models.ZoneInstitutionShared:
		return ownedByInstitution
	case models.ZoneProjectDocuments, models.ZoneProjectAssessment:
		return ownedByProject
	case models.ZoneBriefcase:
		return ownedByUser
	default:
		return ownedByCourse
	}
}

// courseScopeFilter narrows an already-joined courses alias c to the scope.
// Returns ok=false when the scope cannot contain the joined rows at all.
func courseScopeFilter(scope models.HierarchyScope) (join string, where string, arg bool, ok bool) {
	switch scope.Level {
	case models.LevelSystem:
		return "", "", false, true
	case models.LevelInstitution:
		return ` JOIN degrees d ON d.deg_cod = c.deg_cod JOIN centers ct ON ct.ctr_cod = d.ctr_cod`,
			` AND ct.ins_cod = ?`, true, true
	case models.LevelCenter:
		return ` JOIN degrees d ON d.deg_cod = c.deg_cod`, ` AND d.ctr_cod = ?`, true, true
	case models.LevelDegree:
		return "", ` AND c.deg_cod = ?`, true, true
	case models.LevelCourse:
		return "", ` AND c.crs_cod = ?`, true, true
	default:
		return "", "", false, false
	}
}

// rollUpPart renders one UNION ALL branch for the kinds of one owner class
// under the scope. Emits (crs_cod, grp_cod, usr_cod, depth, folders, files,
// total_bytes) with NULLs for dimensions the class does not carry.
func rollUpPart(class ownerClass, kinds []models.ZoneKind, scope models.HierarchyScope) (string, []interface{}, bool) {
	in := make([]interface{}, len(kinds))
	placeholders := make([]string, len(kinds))
	for i, k := range kinds {
		in[i] = int(k)
		placeholders[i] = "?"
	}
	kindSet := strings.Join(placeholders, ",")

	var sel, join, where string
	args := in

	appendScope := func(j, w string, arg bool, ok bool) bool {
		if !ok {
			return false
		}
		join += j
		where += w
		if arg {
			args = append(args, scope.Code)
		}
		return true
	}

	switch class {
	case ownedByCourse, ownedByCoursePersonal:
		sel = `SELECT c.crs_cod AS crs_cod, NULL::BIGINT AS grp_cod, ` + personalUserColumn(class) + `,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		join = ` JOIN courses c ON c.crs_cod = zs.owner_code`
		if !appendScope(courseScopeFilter(scope)) {
			return "", nil, false
		}
	case ownedByGroup:
		sel = `SELECT c.crs_cod AS crs_cod, zs.owner_code AS grp_cod, NULL::BIGINT AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		join = ` JOIN course_groups g ON g.grp_cod = zs.owner_code JOIN courses c ON c.crs_cod = g.crs_cod`
		if scope.Level == models.LevelGroup {
			where += ` AND zs.owner_code = ?`
			args = append(args, scope.Code)
		} else if !appendScope(courseScopeFilter(scope)) {
			return "", nil, false
		}
	case ownedByProject:
		sel = `SELECT c.crs_cod AS crs_cod, NULL::BIGINT AS grp_cod, NULL::BIGINT AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		join = ` JOIN projects p ON p.prj_cod = zs.owner_code JOIN courses c ON c.crs_cod = p.crs_cod`
		if scope.Level == models.LevelProject {
			where += ` AND zs.owner_code = ?`
			args = append(args, scope.Code)
		} else if !appendScope(courseScopeFilter(scope)) {
			return "", nil, false
		}
	case ownedByUser:
		sel = `SELECT c.crs_cod AS crs_cod, NULL::BIGINT AS grp_cod, zs.owner_code AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		if scope.Level == models.LevelSystem {
			sel = `SELECT NULL::BIGINT AS crs_cod, NULL::BIGINT AS grp_cod, zs.owner_code AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
			join = ""
		} else {
			join = ` JOIN course_users cu ON cu.usr_cod = zs.owner_code JOIN courses c ON c.crs_cod = cu.crs_cod`
			if !appendScope(courseScopeFilter(scope)) {
				return "", nil, false
			}
		}
	case ownedByDegree:
		sel = `SELECT NULL::BIGINT AS crs_cod, NULL::BIGINT AS grp_cod, NULL::BIGINT AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		join = ` JOIN degrees d ON d.deg_cod = zs.owner_code`
		switch scope.Level {
		case models.LevelSystem:
		case models.LevelInstitution:
			join += ` JOIN centers ct ON ct.ctr_cod = d.ctr_cod`
			where += ` AND ct.ins_cod = ?`
			args = append(args, scope.Code)
		case models.LevelCenter:
			where += ` AND d.ctr_cod = ?`
			args = append(args, scope.Code)
		case models.LevelDegree:
			where += ` AND d.deg_cod = ?`
			args = append(args, scope.Code)
		default:
			return "", nil, false
		}
	case ownedByCenter:
		sel = `SELECT NULL::BIGINT AS crs_cod, NULL::BIGINT AS grp_cod, NULL::BIGINT AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		join = ` JOIN centers ct ON ct.ctr_cod = zs.owner_code`
		switch scope.Level {
		case models.LevelSystem:
		case models.LevelInstitution:
			where += ` AND ct.ins_cod = ?`
			args = append(args, scope.Code)
		case models.LevelCenter:
			where += ` AND ct.ctr_cod = ?`
			args = append(args, scope.Code)
		default:
			return "", nil, false
		}
	case ownedByInstitution:
		sel = `SELECT NULL::BIGINT AS crs_cod, NULL::BIGINT AS grp_cod, NULL::BIGINT AS usr_cod,
	       zs.depth, zs.folders, zs.files, zs.total_bytes`
		switch scope.Level {
		case models.LevelSystem:
		case models.LevelInstitution:
			where += ` AND zs.owner_code = ?`
			args = append(args, scope.Code)
		default:
			return "", nil, false
		}
	}

	part := sel + ` FROM zone_sizes zs` + join + ` WHERE zs.zone_kind IN (` + kindSet + `)` + where
	return part, args, true
}

func personalUserColumn(class ownerClass) string {
	if class == ownedByCoursePersonal {
		return `zs.secondary_owner AS usr_cod`
	}
	return `NULL::BIGINT AS usr_cod`
}

// RollUp sums snapshots for every zone of the given kinds whose owner sits
// under the hierarchy scope. The union-then-aggregate shape mirrors the
// legacy figures queries.
func (r *SizeRepository) RollUp(ctx context.Context, scope models.HierarchyScope, kinds []models.ZoneKind) (*models.SizeRollUp, error) {
	byClass := make(map[ownerClass][]models.ZoneKind)
	for _, k := range kinds {
		c := classOf(k)
		byClass[c] = append(byClass[c], k)
	}

	parts := make([]string, 0, len(byClass))
	args := make([]interface{}, 0, len(kinds)+4)
	var hasCourses, hasGroups, hasUsers bool
	for _, class := range []ownerClass{
		ownedByCourse, ownedByCoursePersonal, ownedByGroup, ownedByDegree,
		ownedByCenter, ownedByInstitution, ownedByProject, ownedByUser,
	} {
		classKinds, present := byClass[class]
		if !present {
			continue
		}
		part, partArgs, ok := rollUpPart(class, classKinds, scope)
		if !ok {
			continue // the scope cannot contain zones of this class
		}
		parts = append(parts, part)
		args = append(args, partArgs...)

		switch class {
		case ownedByCourse, ownedByCoursePersonal, ownedByGroup, ownedByProject:
			hasCourses = true
		case ownedByUser:
			if scope.Level != models.LevelSystem {
				hasCourses = true
			}
		}
		if class == ownedByGroup {
			hasGroups = true
		}
		if class == ownedByCoursePersonal || class == ownedByUser {
			hasUsers = true
		}
	}

	roll := &models.SizeRollUp{Courses: -1, Groups: -1, Users: -1}
	if len(parts) == 0 {
		return roll, nil
	}

	query := `SELECT COUNT(DISTINCT crs_cod) AS courses,
	       COUNT(DISTINCT grp_cod) AS groups,
	       COUNT(DISTINCT usr_cod) AS users,
	       COALESCE(MAX(depth), 0) AS max_depth,
	       COALESCE(SUM(folders), 0) AS folders,
	       COALESCE(SUM(files), 0) AS files,
	       COALESCE(SUM(total_bytes), 0) AS total_bytes
	FROM (` + strings.Join(parts, " UNION ALL ") + `) AS sizes`
	query = r.db.Rebind(query)

	if err := r.db.GetContext(ctx, roll, query, args...); err != nil {
		return nil, fmt.Errorf("roll up zone sizes: %w", err)
	}
	// COUNT over an all-NULL dimension yields zero; restore the marker for
	// dimensions no selected owner class reports.
	if !hasCourses {
		roll.Courses = -1
	}
	if !hasGroups {
		roll.Groups = -1
	}
	if !hasUsers {
		roll.Users = -1
	}
	return roll, nil
}
