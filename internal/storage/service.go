package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"backend-avltrack/internal/db"
	"backend-avltrack/internal/shapefile"

	"github.com/google/uuid"
)

var ErrInvalidDeviceID = errors.New("device id cannot be used as a file name")

// Service writes shapefile bundles to a directory as {device}_path.{ext}
// and records each artifact in storage_objects when a database is set.
type Service struct {
	db  db.Querier
	dir string
}

func NewService(db db.Querier, dir string) *Service {
	return &Service{db: db, dir: dir}
}

func (s *Service) Dir() string {
	return s.dir
}

// Path returns where the bundle member for deviceID is stored.
func (s *Service) Path(deviceID, ext string) (string, error) {
	if deviceID == "" || deviceID == "." || deviceID == ".." ||
		strings.ContainsAny(deviceID, `/\`) || strings.ContainsRune(deviceID, 0) {
		return "", ErrInvalidDeviceID
	}
	return filepath.Join(s.dir, FileName(deviceID, ext)), nil
}

func FileName(deviceID, ext string) string {
	return deviceID + "_path." + ext
}

// SaveBundle writes every member of b and returns the paths by extension.
func (s *Service) SaveBundle(ctx context.Context, deviceID string, b shapefile.Bundle) (map[string]string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create shapefile dir: %w", err)
	}

	paths := make(map[string]string, len(shapefile.Extensions))
	for _, ext := range shapefile.Extensions {
		path, err := s.Path(deviceID, ext)
		if err != nil {
			return nil, err
		}
		if err := writeFileAtomic(path, b.File(ext)); err != nil {
			return nil, fmt.Errorf("write %s: %w", ext, err)
		}
		paths[ext] = path
	}

	if s.db != nil {
		for _, ext := range shapefile.Extensions {
			if _, err := s.SaveObject(ctx, deviceID, paths[ext], ext); err != nil {
				return nil, err
			}
		}
	}
	return paths, nil
}

func (s *Service) SaveObject(ctx context.Context, deviceID, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, device_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, id, deviceID, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
