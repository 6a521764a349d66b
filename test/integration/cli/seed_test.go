// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 afa Contributors

//go:build integration

package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"
)

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetSchema(ctx)
	})

	It("applies the schema and reports it", func() {
		output, err := afa(ctx, "", "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
		Expect(output).To(ContainSubstring("Migrations completed successfully"))

		output, err = afa(ctx, "", "migrate", "version")
		Expect(err).NotTo(HaveOccurred(), "migrate version failed: %s", output)
		Expect(output).To(ContainSubstring("(clean)"))
		Expect(output).To(ContainSubstring("[x] 000001_create_users"))
		Expect(output).NotTo(ContainSubstring("[ ]"))
	})

	It("reverts everything with --all", func() {
		output, err := afa(ctx, "", "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)

		output, err = afa(ctx, "", "migrate", "down", "--all")
		Expect(err).NotTo(HaveOccurred(), "migrate down failed: %s", output)

		var exists bool
		err = env.pool.QueryRow(ctx, "SELECT to_regclass('public.users') IS NOT NULL").Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
})

var _ = Describe("Seed Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetSchema(ctx)
		output, err := afa(ctx, "", "migrate", "up")
		Expect(err).NotTo(HaveOccurred(), "migrate up failed: %s", output)
	})

	It("creates an administrator", func() {
		output, err := afa(ctx, "", "seed", "--email", "Admin@Example.com", "--password", "correct horse")
		Expect(err).NotTo(HaveOccurred(), "seed failed: %s", output)
		Expect(output).To(ContainSubstring("created admin@example.com"))

		var role, plan, hash string
		err = env.pool.QueryRow(ctx,
			"SELECT role, plan, password_hash FROM users WHERE email = $1", "admin@example.com",
		).Scan(&role, &plan, &hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(role).To(Equal("ADMIN"))
		Expect(plan).To(Equal("BUSINESS"))
		Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse"))).To(Succeed())
	})

	It("is idempotent and never changes an existing password", func() {
		output, err := afa(ctx, "", "seed", "--email", "admin@example.com", "--password", "correct horse")
		Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", output)

		var before string
		Expect(env.pool.QueryRow(ctx, "SELECT password_hash FROM users").Scan(&before)).To(Succeed())

		output, err = afa(ctx, "", "seed", "--email", "admin@example.com", "--password", "different horse")
		Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output)
		Expect(output).To(ContainSubstring("promoted admin@example.com"))

		var count int
		var after string
		Expect(env.pool.QueryRow(ctx, "SELECT COUNT(*), MAX(password_hash) FROM users").Scan(&count, &after)).To(Succeed())
		Expect(count).To(Equal(1))
		Expect(after).To(Equal(before))
	})

	It("seeds users from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "seed.yaml")
		Expect(os.WriteFile(path, []byte(`users:
  - email: one@example.com
    password: correct horse
  - email: two@example.com
    password: correct horse
    role: USER
    plan: PRO
`), 0o600)).To(Succeed())

		output, err := afa(ctx, "", "seed", "--file", path)
		Expect(err).NotTo(HaveOccurred(), "seed failed: %s", output)

		var plan string
		Expect(env.pool.QueryRow(ctx, "SELECT plan FROM users WHERE email = $1", "two@example.com").Scan(&plan)).To(Succeed())
		Expect(plan).To(Equal("PRO"))
	})
})

var _ = Describe("Hash Password Command", func() {
	It("prints a bcrypt hash of stdin", func() {
		output, err := afa(context.Background(), "correct horse\n", "hash-password")
		Expect(err).NotTo(HaveOccurred(), "hash-password failed: %s", output)

		lines := strings.Split(strings.TrimSpace(output), "\n")
		hash := lines[len(lines)-1]
		Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse"))).To(Succeed())
	})
})
