package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
)

type sigKey struct {
	video string
	model models.ColorModel
}

// MemoryStore keeps videos and signatures in process memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	videos map[string]models.Video
	sigs   map[sigKey]models.Signature
	times  map[sigKey]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos: make(map[string]models.Video),
		sigs:   make(map[sigKey]models.Signature),
		times:  make(map[sigKey]time.Time),
	}
}

func (m *MemoryStore) RegisterVideo(v models.Video) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.videos[v.Name]; ok {
		v.ID = old.ID
		v.CreatedAt = old.CreatedAt
		if v.YouTubeID == "" {
			v.YouTubeID = old.YouTubeID
		}
	} else {
		v.ID = utils.GenerateUUID()
		v.CreatedAt = time.Now()
	}
	m.videos[v.Name] = v
	return v.ID, nil
}

func (m *MemoryStore) PutSignature(sig models.Signature) error {
	if len(sig.Average) == 0 {
		return fmt.Errorf("signature %s/%s has no averaged descriptor", sig.VideoID, sig.Model)
	}
	stored := models.Signature{
		VideoID: sig.VideoID,
		Model:   sig.Model,
		Bins:    sig.Bins,
		Range:   sig.Range,
		Average: sig.Average.Clone(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	k := sigKey{sig.VideoID, sig.Model}
	m.sigs[k] = stored
	m.times[k] = time.Now()
	return nil
}

func (m *MemoryStore) GetSignatures(model models.ColorModel) (map[string]models.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.Signature)
	for k, s := range m.sigs {
		if k.model == model {
			s.Average = s.Average.Clone()
			out[k.video] = s
		}
	}
	return out, nil
}

func (m *MemoryStore) ListSignatures(videoName string) ([]models.SignatureInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.SignatureInfo
	for k, s := range m.sigs {
		if k.video != videoName {
			continue
		}
		out = append(out, models.SignatureInfo{
			VideoID:   s.VideoID,
			Model:     s.Model,
			Bins:      s.Bins,
			Range:     s.Range,
			UpdatedAt: m.times[k],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

func (m *MemoryStore) GetVideo(nameOrID string) (*models.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.videos[nameOrID]; ok {
		return &v, nil
	}
	for _, v := range m.videos {
		if v.ID == nameOrID {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, nameOrID)
}

func (m *MemoryStore) ListVideos() ([]models.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Video, 0, len(m.videos))
	for _, v := range m.videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) DeleteVideo(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, found := m.videos[name]
	delete(m.videos, name)
	for k := range m.sigs {
		if k.video == name {
			delete(m.sigs, k)
			delete(m.times, k)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, name)
	}
	return nil
}

func (m *MemoryStore) SignatureCount(model models.ColorModel) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if model == "" {
		return len(m.sigs), nil
	}
	n := 0
	for k := range m.sigs {
		if k.model == model {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
