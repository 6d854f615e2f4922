package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

type sqlEntity struct {
	RowID      uint           `gorm:"primaryKey;autoIncrement"`
	Kind       string         `gorm:"type:text;not null;uniqueIndex:idx_skillgraph_entity_key,priority:1"`
	EntityID   string         `gorm:"type:text;not null;uniqueIndex:idx_skillgraph_entity_key,priority:2"`
	Source     string         `gorm:"type:text;not null;default:''"`
	Properties datatypes.JSON `gorm:"not null"`
}

func (sqlEntity) TableName() string { return "skillgraph_entity" }

type sqlSkill struct {
	RowID uint   `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"type:text;not null;uniqueIndex:idx_skillgraph_skill_name"`
}

func (sqlSkill) TableName() string { return "skillgraph_skill" }

type sqlRelationship struct {
	RowID       uint   `gorm:"primaryKey;autoIncrement"`
	EntityRowID uint   `gorm:"not null;uniqueIndex:idx_skillgraph_rel,priority:1"`
	Type        string `gorm:"type:text;not null;uniqueIndex:idx_skillgraph_rel,priority:2"`
	SkillRowID  uint   `gorm:"not null;uniqueIndex:idx_skillgraph_rel,priority:3;index"`
}

func (sqlRelationship) TableName() string { return "skillgraph_relationship" }

type sqlTripleRow struct {
	Kind       string
	EntityID   string
	Source     string
	Properties datatypes.JSON
	SkillName  string
	Type       string
}

const sqlBatchSize = 500

// SQLBackend mirrors the graph into three relational tables using gorm. The
// unique indexes repeat the graph invariants: one row per skill name, one per
// (kind, id), one per (entity, type, skill).
type SQLBackend struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLBackend(ctx context.Context, db *gorm.DB, log *logger.Logger) (*SQLBackend, error) {
	if db == nil {
		return nil, fmt.Errorf("sql backend: db required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := db.WithContext(ctx).AutoMigrate(&sqlEntity{}, &sqlSkill{}, &sqlRelationship{}); err != nil {
		return nil, classify("sql backend: migrate", err)
	}
	return &SQLBackend{db: db, log: log.With("backend", "sql")}, nil
}

func (b *SQLBackend) Name() string { return "sql" }

func (b *SQLBackend) Replace(ctx context.Context, snap *types.Snapshot) error {
	if snap == nil {
		snap = &types.Snapshot{}
	}
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&sqlRelationship{}, &sqlEntity{}, &sqlSkill{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}

		entityRows := make([]*sqlEntity, 0, len(snap.Entities))
		for _, e := range snap.Entities {
			raw, err := json.Marshal(e.Properties)
			if err != nil {
				return fmt.Errorf("encode properties of %s: %w", e.Key(), err)
			}
			entityRows = append(entityRows, &sqlEntity{
				Kind:       string(e.Kind),
				EntityID:   e.ID,
				Source:     e.Source,
				Properties: datatypes.JSON(raw),
			})
		}
		if len(entityRows) > 0 {
			if err := tx.CreateInBatches(entityRows, sqlBatchSize).Error; err != nil {
				return err
			}
		}
		entityIDs := make(map[types.EntityKey]uint, len(entityRows))
		for _, r := range entityRows {
			entityIDs[types.EntityKey{Kind: types.EntityKind(r.Kind), ID: r.EntityID}] = r.RowID
		}

		skillRows := make([]*sqlSkill, 0, len(snap.Skills))
		for _, s := range snap.Skills {
			skillRows = append(skillRows, &sqlSkill{Name: s.Name})
		}
		if len(skillRows) > 0 {
			if err := tx.CreateInBatches(skillRows, sqlBatchSize).Error; err != nil {
				return err
			}
		}
		skillIDs := make(map[string]uint, len(skillRows))
		for _, r := range skillRows {
			skillIDs[r.Name] = r.RowID
		}

		relRows := make([]*sqlRelationship, 0, len(snap.Relationships))
		for _, r := range snap.Relationships {
			eid, ok := entityIDs[r.Entity]
			if !ok {
				return fmt.Errorf("relationship references unknown entity %s", r.Entity)
			}
			sid, ok := skillIDs[r.Skill]
			if !ok {
				return fmt.Errorf("relationship references unknown skill %q", r.Skill)
			}
			relRows = append(relRows, &sqlRelationship{EntityRowID: eid, Type: string(r.Type), SkillRowID: sid})
		}
		if len(relRows) > 0 {
			if err := tx.CreateInBatches(relRows, sqlBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify("sql backend: replace", fmt.Errorf("sql backend: replace: %w", err))
	}
	return nil
}

func (b *SQLBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	q := b.db.WithContext(ctx).
		Table("skillgraph_relationship AS r").
		Select("e.kind, e.entity_id, e.source, e.properties, s.name AS skill_name, r.type").
		Joins("JOIN skillgraph_entity AS e ON e.row_id = r.entity_row_id").
		Joins("JOIN skillgraph_skill AS s ON s.row_id = r.skill_row_id").
		Order("r.row_id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []sqlTripleRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, classify("sql backend: triples", fmt.Errorf("sql backend: triples: %w", err))
	}

	out := make([]types.Triple, 0, len(rows))
	for _, r := range rows {
		var extra types.Properties
		if len(r.Properties) > 0 {
			if err := json.Unmarshal(r.Properties, &extra); err != nil {
				b.log.Warn("Skipping undecodable entity properties", "kind", r.Kind, "id", r.EntityID, "error", err)
			}
		}
		e := types.EntityNode{ID: r.EntityID, Kind: types.EntityKind(r.Kind), Source: r.Source, Properties: extra}
		skill := types.SkillNode{Name: r.SkillName}
		out = append(out, types.Triple{
			Source: types.NodeRecord{
				ElementID:  types.EntityElementID(e.Key()),
				Labels:     e.Labels(),
				Properties: e.NodeProperties(),
			},
			Type: r.Type,
			Target: types.NodeRecord{
				ElementID:  types.SkillElementID(skill.Name),
				Labels:     []string{types.SkillLabel},
				Properties: skill.NodeProperties(),
			},
		})
	}
	return out, nil
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return types.Unavailable("sql backend: ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return types.Unavailable("sql backend: ping", err)
	}
	return nil
}

func (b *SQLBackend) Close(context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
