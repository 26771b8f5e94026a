// Package handlers implements the per-command coroutines of spec.md §4.7:
// auth, profile, friends, conversations, members, history, send,
// leave/dissolve, and group create/search/join, plus the reactions handler
// supplemented from original_source (SPEC_FULL.md M9). Handlers talk only
// to the adapter.Adapter interface and the hub/cache, never to a concrete
// driver, mirroring how tinode's command handlers talk only to store.*.
package handlers

import (
	"log"
	"math/rand"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/chatd/chatd/internal/auth"
	"github.com/chatd/chatd/internal/convcache"
	"github.com/chatd/chatd/internal/hub"
	"github.com/chatd/chatd/internal/store/adapter"
	"github.com/chatd/chatd/internal/store/auxkv"
	"github.com/chatd/chatd/internal/store/idgen"
)

// Deps bundles everything a handler needs. One Deps is shared by every
// session's dispatch table; it holds no per-session state.
type Deps struct {
	Store    adapter.Adapter
	Cache    *convcache.Cache
	Hub      *hub.Hub
	IDGen    idgen.Generator
	AuxKV    *auxkv.Store // nil when no aux KV store is configured
	Verifier auth.Verifier
	Validate *validator.Validate
	Logger   *log.Logger

	// HistoryDefaultLimit / HistoryMaxLimit bound HISTORY_REQ per
	// spec.md §4.7 ("limit default 50, max implementation-defined (>=100
	// recommended)").
	HistoryDefaultLimit int
	HistoryMaxLimit     int

	// AvatarMaxBytes bounds AVATAR_UPDATE payloads.
	AvatarMaxBytes int

	worldOnce sync.Once
	worldID   int64
	worldErr  error
}

// NewDeps builds a Deps with spec.md-recommended defaults.
func NewDeps(store adapter.Adapter, cache *convcache.Cache, h *hub.Hub, gen idgen.Generator, aux *auxkv.Store, verifier auth.Verifier, logger *log.Logger) *Deps {
	if logger == nil {
		logger = log.Default()
	}
	return &Deps{
		Store:               store,
		Cache:               cache,
		Hub:                 h,
		IDGen:               gen,
		AuxKV:               aux,
		Verifier:            verifier,
		Validate:            validator.New(),
		Logger:              logger,
		HistoryDefaultLimit: 50,
		HistoryMaxLimit:     200,
		AvatarMaxBytes:      256 * 1024,
	}
}

// WorldConversationID memoizes the well-known world group's ID (spec.md
// §3: "A single well-known row marks the default world group").
func (d *Deps) WorldConversationID() (int64, error) {
	d.worldOnce.Do(func() {
		d.worldID, d.worldErr = d.Store.WorldConversationID()
	})
	return d.worldID, d.worldErr
}

// adjectives/nouns back the random display name REGISTER assigns, per
// spec.md §4.7 ("assign a random display name").
var (
	adjectives = []string{"Quiet", "Swift", "Lucky", "Brave", "Calm", "Eager", "Gentle", "Bold", "Merry", "Sly"}
	nouns      = []string{"Falcon", "Otter", "Maple", "Comet", "Ember", "Harbor", "Willow", "Raven", "Delta", "Lantern"}
)

func randomDisplayName() string {
	return adjectives[rand.Intn(len(adjectives))] + " " + nouns[rand.Intn(len(nouns))] + strconv.Itoa(rand.Intn(1000))
}
