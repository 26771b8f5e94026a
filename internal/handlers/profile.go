package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/wire"
)

// avatarPathFor derives a content-addressed avatar reference so repeated
// uploads of the same image dedupe to the same path.
func avatarPathFor(userID int64, raw []byte) string {
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("avatars/%d/%s", userID, hex.EncodeToString(sum[:]))
}

// HandleProfileUpdate implements PROFILE_UPDATE.
func HandleProfileUpdate(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.ProfileUpdateReq
		if !decode(s, "PROFILE_UPDATE_RESP", payload, &req, d) {
			return
		}
		if strings.TrimSpace(req.DisplayName) == "" {
			fail(s, "PROFILE_UPDATE_RESP", wire.ErrInvalidParam, "displayName must not be blank", d.Logger)
			return
		}
		if err := d.Store.UserUpdateProfile(s.UserID(), req.DisplayName); err != nil {
			fail(s, "PROFILE_UPDATE_RESP", wire.ErrServerErrorDB, "profile update failed", d.Logger)
			return
		}
		s.SetDisplayName(req.DisplayName)
		reply(s, "PROFILE_UPDATE_RESP", wire.ProfileUpdateResp{Envelope: wire.OK(), DisplayName: req.DisplayName}, d.Logger)
	}
}

// HandleAvatarUpdate implements AVATAR_UPDATE: the client sends the image
// base64-encoded in the payload; the server decodes, size-checks against
// d.AvatarMaxBytes, and persists a storage path. Actual blob storage is out
// of scope (spec.md Non-goals exclude a media/object store), so the
// "path" is a content-addressed in-DB reference derived from the decoded
// bytes; only that path is persisted, the bytes themselves are not stored.
func HandleAvatarUpdate(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.AvatarUpdateReq
		if !decode(s, "AVATAR_UPDATE_RESP", payload, &req, d) {
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.AvatarBase64)
		if err != nil {
			fail(s, "AVATAR_UPDATE_RESP", wire.ErrInvalidParam, "avatarBase64 is not valid base64", d.Logger)
			return
		}
		if len(raw) > d.AvatarMaxBytes {
			fail(s, "AVATAR_UPDATE_RESP", wire.ErrInvalidParam, "avatar exceeds maximum size", d.Logger)
			return
		}

		path := avatarPathFor(s.UserID(), raw)
		if err := d.Store.UserUpdateAvatar(s.UserID(), path); err != nil {
			fail(s, "AVATAR_UPDATE_RESP", wire.ErrServerErrorDB, "avatar update failed", d.Logger)
			return
		}
		s.SetAvatarPath(path)
		reply(s, "AVATAR_UPDATE_RESP", wire.AvatarUpdateResp{Envelope: wire.OK(), AvatarPath: path}, d.Logger)
	}
}
