// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/afa-platform/afa/internal/auth"
	"github.com/afa-platform/afa/internal/password"
	"github.com/afa-platform/afa/internal/web"
)

// client is a browser-like API client that keeps the session cookie.
type client struct {
	http *http.Client
}

func newClient() *client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &client{http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.api.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
	}
	return resp.StatusCode, decoded
}

func (c *client) hasSessionCookie() bool {
	req, err := http.NewRequest(http.MethodGet, env.api.URL+"/api/auth/me", nil)
	Expect(err).NotTo(HaveOccurred())
	for _, cookie := range c.http.Jar.Cookies(req.URL) {
		if cookie.Name == web.SessionCookieName && cookie.Value != "" {
			return true
		}
	}
	return false
}

var _ = Describe("Session lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncateUsers(ctx)
	})

	It("registers, resolves, logs out and logs back in", func() {
		c := newClient()

		status, body := c.do(http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Ada", "email": "Ada@Example.com", "password": "correct horse",
		})
		Expect(status).To(Equal(http.StatusCreated))
		Expect(body["email"]).To(Equal("ada@example.com"))
		Expect(body["role"]).To(Equal("user"))
		Expect(body["plan"]).To(Equal("free"))
		Expect(c.hasSessionCookie()).To(BeTrue())

		status, body = c.do(http.MethodGet, "/api/auth/me", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body["name"]).To(Equal("Ada"))

		status, _ = c.do(http.MethodPost, "/api/auth/logout", nil)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(c.hasSessionCookie()).To(BeFalse())

		status, body = c.do(http.MethodGet, "/api/auth/me", nil)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body["error"]).To(Equal("unauthorized"))

		status, body = c.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "ADA@example.com", "password": "correct horse",
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body["email"]).To(Equal("ada@example.com"))
		Expect(c.hasSessionCookie()).To(BeTrue())
	})

	It("rejects a duplicate registration regardless of case", func() {
		status, _ := newClient().do(http.MethodPost, "/api/auth/register", map[string]string{
			"email": "dup@example.com", "password": "correct horse",
		})
		Expect(status).To(Equal(http.StatusCreated))

		status, body := newClient().do(http.MethodPost, "/api/auth/register", map[string]string{
			"email": "DUP@example.com", "password": "another horse",
		})
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body["error"]).To(Equal("email already registered"))
	})

	It("gives the same answer for unknown email and wrong password", func() {
		status, _ := newClient().do(http.MethodPost, "/api/auth/register", map[string]string{
			"email": "known@example.com", "password": "correct horse",
		})
		Expect(status).To(Equal(http.StatusCreated))

		wrongStatus, wrongBody := newClient().do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "known@example.com", "password": "wrong horse",
		})
		unknownStatus, unknownBody := newClient().do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "unknown@example.com", "password": "correct horse",
		})
		Expect(wrongStatus).To(Equal(http.StatusUnauthorized))
		Expect(unknownStatus).To(Equal(wrongStatus))
		Expect(unknownBody).To(Equal(wrongBody))
	})

	It("upgrades a legacy scrypt hash on login", func() {
		salt := []byte("0123456789abcdef")
		key, err := password.DeriveScryptKey("legacy secret", salt)
		Expect(err).NotTo(HaveOccurred())
		legacy := "scrypt:" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(key)

		user, err := env.users.Create(ctx, auth.Profile{
			Name: "Legacy", Email: "legacy@example.com", Role: auth.RoleUser, Plan: auth.PlanPro,
		}, legacy)
		Expect(err).NotTo(HaveOccurred())

		status, body := newClient().do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "legacy@example.com", "password": "legacy secret",
		})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body["plan"]).To(Equal("pro"))

		cred, err := env.users.GetByEmail(ctx, "legacy@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(cred.ID).To(Equal(user.ID))
		Expect(cred.PasswordHash).To(HavePrefix("$2"))

		status, _ = newClient().do(http.MethodPost, "/api/auth/login", map[string]string{
			"email": "legacy@example.com", "password": "legacy secret",
		})
		Expect(status).To(Equal(http.StatusOK))
	})

	It("reports database health", func() {
		status, body := newClient().do(http.MethodGet, "/api/health", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(HaveKeyWithValue("ok", true))
		Expect(body).To(HaveKeyWithValue("db", "ok"))
	})
})

var _ = Describe("Admin user listing", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncateUsers(ctx)
	})

	It("is limited to administrators", func() {
		member := newClient()
		status, body := member.do(http.MethodPost, "/api/auth/register", map[string]string{
			"email": "member@example.com", "password": "correct horse",
		})
		Expect(status).To(Equal(http.StatusCreated))

		status, _ = member.do(http.MethodGet, "/api/admin/users", nil)
		Expect(status).To(Equal(http.StatusForbidden))

		id, ok := body["id"].(string)
		Expect(ok).To(BeTrue())
		Expect(env.users.SetRoleAndPlan(ctx, id, auth.RoleAdmin, auth.PlanBusiness)).To(Succeed())

		req, err := http.NewRequest(http.MethodGet, env.api.URL+"/api/admin/users?limit=10", nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err := member.http.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var listed []map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0]["role"]).To(Equal("admin"))
		Expect(listed[0]).NotTo(HaveKey("passwordHash"))
	})
})
