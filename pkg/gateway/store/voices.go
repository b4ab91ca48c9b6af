package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bragi-audio/bragi/pkg/core/voice"
)

const referenceFile = "reference.wav"

const voiceColumns = "id, name, transcript, original_filename, adapter_alias, created_at"

func scanVoice(row pgx.Row) (*voice.CustomVoice, error) {
	var v voice.CustomVoice
	err := row.Scan(&v.ID, &v.Name, &v.Transcript, &v.OriginalFilename, &v.AdapterAlias, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) voiceDir(id string) string {
	return filepath.Join(s.audioDir, id)
}

// CreateVoice stores the reference clip on disk and the metadata row in
// one go. The blob is written first so a failed insert leaves no row
// pointing at nothing.
func (s *Store) CreateVoice(ctx context.Context, name, transcriptText string, audioData []byte, originalFilename, adapterAlias string) (*voice.CustomVoice, error) {
	id := uuid.NewString()

	dir := s.voiceDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: voice dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, referenceFile), audioData, 0o644); err != nil {
		return nil, fmt.Errorf("store: reference clip: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO custom_voices (id, name, transcript, original_filename, adapter_alias)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+voiceColumns,
		id, name, transcriptText, originalFilename, adapterAlias)
	v, err := scanVoice(row)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("store: create voice: %w", err)
	}
	return v, nil
}

// GetByName returns nil with no error when the name is unknown.
func (s *Store) GetByName(ctx context.Context, name string) (*voice.CustomVoice, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+voiceColumns+` FROM custom_voices WHERE name = $1`, name)
	v, err := scanVoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: voice by name: %w", err)
	}
	return v, nil
}

func (s *Store) GetVoiceByID(ctx context.Context, id string) (*voice.CustomVoice, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+voiceColumns+` FROM custom_voices WHERE id = $1`, id)
	v, err := scanVoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: voice by id: %w", err)
	}
	return v, nil
}

func (s *Store) ListVoices(ctx context.Context) ([]*voice.CustomVoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+voiceColumns+` FROM custom_voices ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list voices: %w", err)
	}
	defer rows.Close()

	var out []*voice.CustomVoice
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list voices: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list voices: %w", err)
	}
	return out, nil
}

// DeleteVoice removes the row and its blob directory. Reports whether a
// row existed; blob cleanup failures are not fatal since the row is gone.
func (s *Store) DeleteVoice(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM custom_voices WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete voice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	os.RemoveAll(s.voiceDir(id))
	return true, nil
}

// ReferenceAudio loads the stored clip for a voice.
func (s *Store) ReferenceAudio(ctx context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.voiceDir(id), referenceFile))
	if err != nil {
		return nil, fmt.Errorf("store: reference clip: %w", err)
	}
	return data, nil
}
