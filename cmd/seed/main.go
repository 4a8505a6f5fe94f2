package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"inkpress.org/internal/auth"
)

type seedRole struct {
	name        string
	description string
	permissions []string
}

type seedAccount struct {
	email     string
	firstName string
	lastName  string
	roleName  string
}

var seedRoles = []seedRole{
	{"super_admin", "Super Admin", auth.BuiltinPermissions},
	{"author_ce", "Civil Engineering Author", auth.AuthorPermissions},
	{"author_ee", "Electrical Engineering Author", auth.AuthorPermissions},
	{"author_it", "Information Technology Author", auth.AuthorPermissions},
	{"editor", "Editorial Reviewer", []string{auth.PermArticleApprove, auth.PermArticleArchive}},
}

var seedAccounts = []seedAccount{
	{"admin@ceit.edu", "Super", "Admin", "super_admin"},
	{"ce.author@ceit.edu", "Civil", "Engineer", "author_ce"},
	{"ee.author@ceit.edu", "Electrical", "Engineer", "author_ee"},
	{"it.author@ceit.edu", "IT", "Specialist", "author_it"},
}

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	var (
		dsn      = flag.String("dsn", os.Getenv("INKPRESS_PG_DSN"), "PostgreSQL DSN")
		password = flag.String("password", envOr("INKPRESS_SEED_PASSWORD", "Admin123!"), "Password for seeded accounts")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or INKPRESS_PG_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := seed(ctx, db, *password); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Println("database seeding completed")
}

func seed(ctx context.Context, db *sql.DB, password string) error {
	for _, name := range auth.BuiltinPermissions {
		if _, err := db.ExecContext(ctx,
			`insert into permissions(id, name) values ($1, $2) on conflict (name) do nothing`,
			uuid.NewString(), name); err != nil {
			return err
		}
	}

	for _, role := range seedRoles {
		if _, err := db.ExecContext(ctx,
			`insert into roles(id, name, description) values ($1, $2, $3) on conflict (name) do nothing`,
			uuid.NewString(), role.name, role.description); err != nil {
			return err
		}
		for _, perm := range role.permissions {
			if _, err := db.ExecContext(ctx,
				`insert into role_permissions(role_id, permission_id)
				 select r.id, p.id from roles r, permissions p where r.name = $1 and p.name = $2
				 on conflict do nothing`,
				role.name, perm); err != nil {
				return err
			}
		}
	}

	for _, account := range seedAccounts {
		digest, err := auth.HashSecret(password)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx,
			`insert into accounts(id, email, first_name, last_name, password_hash, role_id)
			 select $1, $2, $3, $4, $5, r.id from roles r where r.name = $6
			 on conflict (email) do nothing`,
			uuid.NewString(), account.email, account.firstName, account.lastName, digest, account.roleName); err != nil {
			return err
		}
		log.Printf("seeded %s (%s)", account.email, account.roleName)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
