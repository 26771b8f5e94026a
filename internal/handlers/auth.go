package handlers

import (
	"database/sql"
	"errors"

	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleRegister implements spec.md §4.7 REGISTER: create the user if the
// account is free, assign a random display name, and auto-join the world
// conversation as MEMBER.
func HandleRegister(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.RegisterReq
		if !decode(s, "REGISTER_RESP", payload, &req, d) {
			return
		}
		if req.Password != req.ConfirmPassword {
			fail(s, "REGISTER_RESP", wire.ErrPasswordMismatch, "password and confirmation do not match", d.Logger)
			return
		}

		if _, err := d.Store.UserGetByAccount(req.Account); err == nil {
			fail(s, "REGISTER_RESP", wire.ErrAccountExists, "account already registered", d.Logger)
			return
		} else if !errors.Is(err, mysql.ErrNotFound) {
			fail(s, "REGISTER_RESP", wire.ErrServerErrorDB, "lookup failed", d.Logger)
			return
		}

		hashed, err := d.Verifier.Hash(req.Password)
		if err != nil {
			fail(s, "REGISTER_RESP", wire.ErrServer, "credential hashing failed", d.Logger)
			return
		}

		u := &types.User{
			Account:     req.Account,
			Password:    hashed,
			DisplayName: randomDisplayName(),
		}
		if err := d.Store.UserCreate(u); err != nil {
			fail(s, "REGISTER_RESP", wire.ErrServerErrorDB, "user creation failed", d.Logger)
			return
		}

		worldID, err := d.WorldConversationID()
		if err != nil {
			d.Logger.Printf("handlers: REGISTER: world conversation unavailable: %v", err)
		} else if err := d.Store.MemberAdd(worldID, u.ID, types.RoleMember); err != nil {
			d.Logger.Printf("handlers: REGISTER: failed to join world conversation for user %d: %v", u.ID, err)
		} else {
			d.Cache.InvalidateAll(worldID)
		}

		reply(s, "REGISTER_RESP", wire.RegisterResp{
			Envelope:    wire.OK(),
			UserID:      wire.ID(u.ID),
			Account:     u.Account,
			DisplayName: u.DisplayName,
		}, d.Logger)
	}
}

// HandleLogin implements spec.md §4.7 LOGIN: a unified LOGIN_FAILED for both
// an absent account and a bad password, and indexes the session by user on
// success.
func HandleLogin(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.LoginReq
		if !decode(s, "LOGIN_RESP", payload, &req, d) {
			return
		}

		u, err := d.Store.UserGetByAccount(req.Account)
		if errors.Is(err, mysql.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			fail(s, "LOGIN_RESP", wire.ErrLoginFailed, "invalid account or password", d.Logger)
			return
		}
		if err != nil {
			fail(s, "LOGIN_RESP", wire.ErrServerErrorDB, "lookup failed", d.Logger)
			return
		}
		if !d.Verifier.Verify(u.Password, req.Password) {
			fail(s, "LOGIN_RESP", wire.ErrLoginFailed, "invalid account or password", d.Logger)
			return
		}

		s.SetAuthenticated(u.ID, u.Account, u.DisplayName, u.AvatarPath)
		d.Hub.Index(u.ID, s)

		worldID, err := d.WorldConversationID()
		if err != nil {
			fail(s, "LOGIN_RESP", wire.ErrServerErrorDB, "world conversation unavailable", d.Logger)
			return
		}

		reply(s, "LOGIN_RESP", wire.LoginResp{
			Envelope:            wire.OK(),
			UserID:              wire.ID(u.ID),
			Account:             u.Account,
			DisplayName:         u.DisplayName,
			AvatarPath:          u.AvatarPath,
			WorldConversationID: wire.ID(worldID),
		}, d.Logger)
	}
}
