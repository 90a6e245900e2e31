package imagegen

import "reelsmith/internal/storage"

// Deps are the shared pieces every image provider builds its Saver from.
type Deps struct {
	Fetcher    Fetcher
	Store      *storage.LocalStorage
	Mirror     storage.Mirror
	TopicLimit int
	Policy     DownloadPolicy
}

func (d Deps) Saver(provider string, backend Backend, opts ...Option) *Saver {
	base := []Option{WithTopicLimit(d.TopicLimit), WithPolicy(d.Policy)}
	if d.Mirror != nil {
		base = append(base, WithMirror(d.Mirror))
	}
	return NewSaver(provider, backend, d.Fetcher, d.Store, append(base, opts...)...)
}
