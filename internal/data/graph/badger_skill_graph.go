package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

const (
	badgerSnapshotKey = "skillgraph/snapshot"
	badgerFormat      = 1
)

type storedEntity struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	Source     string           `json:"source,omitempty"`
	Properties types.Properties `json:"properties,omitempty"`
}

type storedRel struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Skill string `json:"skill"`
	Type  string `json:"type"`
}

type storedSnapshot struct {
	Format        int            `json:"format"`
	Entities      []storedEntity `json:"entities"`
	Skills        []string       `json:"skills"`
	Relationships []storedRel    `json:"relationships"`
}

func encodeSnapshot(s *types.Snapshot) ([]byte, error) {
	out := storedSnapshot{
		Format:        badgerFormat,
		Entities:      make([]storedEntity, 0, len(s.Entities)),
		Skills:        make([]string, 0, len(s.Skills)),
		Relationships: make([]storedRel, 0, len(s.Relationships)),
	}
	for _, e := range s.Entities {
		out.Entities = append(out.Entities, storedEntity{ID: e.ID, Kind: string(e.Kind), Source: e.Source, Properties: e.Properties})
	}
	for _, sk := range s.Skills {
		out.Skills = append(out.Skills, sk.Name)
	}
	for _, r := range s.Relationships {
		out.Relationships = append(out.Relationships, storedRel{Kind: string(r.Entity.Kind), ID: r.Entity.ID, Skill: r.Skill, Type: string(r.Type)})
	}
	return json.Marshal(out)
}

func decodeSnapshot(raw []byte) (*types.Snapshot, error) {
	var in storedSnapshot
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	if in.Format != badgerFormat {
		return nil, fmt.Errorf("unsupported snapshot format %d", in.Format)
	}
	s := &types.Snapshot{
		Entities:      make([]types.EntityNode, 0, len(in.Entities)),
		Skills:        make([]types.SkillNode, 0, len(in.Skills)),
		Relationships: make([]types.Relationship, 0, len(in.Relationships)),
	}
	for _, e := range in.Entities {
		s.Entities = append(s.Entities, types.EntityNode{ID: e.ID, Kind: types.EntityKind(e.Kind), Source: e.Source, Properties: e.Properties})
	}
	for _, name := range in.Skills {
		s.Skills = append(s.Skills, types.SkillNode{Name: name})
	}
	for _, r := range in.Relationships {
		s.Relationships = append(s.Relationships, types.Relationship{
			Entity: types.EntityKey{Kind: types.EntityKind(r.Kind), ID: r.ID},
			Skill:  r.Skill,
			Type:   types.RelationType(r.Type),
		})
	}
	return s, nil
}

// BadgerBackend stores the whole snapshot under one key, written in a single
// Update transaction.
type BadgerBackend struct {
	db  *badger.DB
	log *logger.Logger
}

func NewBadgerBackend(db *badger.DB, log *logger.Logger) *BadgerBackend {
	return &BadgerBackend{db: db, log: log.With("backend", "badger")}
}

func (b *BadgerBackend) Name() string { return "badger" }

func (b *BadgerBackend) Replace(ctx context.Context, snap *types.Snapshot) error {
	if err := b.Ping(ctx); err != nil {
		return err
	}
	if snap == nil {
		snap = &types.Snapshot{}
	}
	raw, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("badger: encode snapshot: %w", err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerSnapshotKey), raw)
	}); err != nil {
		return fmt.Errorf("badger: write snapshot: %w", err)
	}
	return nil
}

func (b *BadgerBackend) load() (*types.Snapshot, error) {
	var snap *types.Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerSnapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			snap = &types.Snapshot{}
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s, err := decodeSnapshot(val)
			if err != nil {
				return err
			}
			snap = s
			return nil
		})
	})
	return snap, err
}

func (b *BadgerBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	if err := b.Ping(ctx); err != nil {
		return nil, err
	}
	snap, err := b.load()
	if err != nil {
		return nil, fmt.Errorf("badger: read snapshot: %w", err)
	}
	return snap.Triples(limit), nil
}

func (b *BadgerBackend) Ping(ctx context.Context) error {
	if b.db == nil || b.db.IsClosed() {
		return types.Unavailable("badger backend", errClosed)
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

func (b *BadgerBackend) Close(context.Context) error {
	if b.db == nil || b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}
