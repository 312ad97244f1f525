package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/phorium/phorium/internal/auth"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/repository"
)

type output struct {
	AccessCodeHash  string `json:"access_code_hash,omitempty"`
	AdminSecretHash string `json:"admin_secret_hash,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	Balance         *int64 `json:"balance,omitempty"`
	Plan            string `json:"plan,omitempty"`
	PlanQuota       int64  `json:"plan_quota,omitempty"`
}

// bootstrap prints Argon2id hashes for ACCESS_CODE_HASH / ADMIN_SECRET_HASH
// and optionally seeds a first credit account.
func main() {
	var (
		accessCode  = flag.String("access-code", "", "Access code to hash for ACCESS_CODE_HASH")
		adminSecret = flag.String("admin-secret", "", "Admin secret to hash for ADMIN_SECRET_HASH")
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (needed with -user-id)")
		userID      = flag.String("user-id", "", "Seed credits for this user")
		credits     = flag.Int64("credits", 0, "Credits to grant to -user-id")
		plan        = flag.String("plan", "", "Plan to assign to -user-id (source, flow, pulse, nexus, admin)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *accessCode == "" && *adminSecret == "" && *userID == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -access-code, -admin-secret or -user-id")
		os.Exit(1)
	}

	var out output
	var err error

	if *accessCode != "" {
		if out.AccessCodeHash, err = auth.HashSecret(*accessCode); err != nil {
			fmt.Fprintln(os.Stderr, "hash access code:", err)
			os.Exit(1)
		}
	}
	if *adminSecret != "" {
		if out.AdminSecretHash, err = auth.HashSecret(*adminSecret); err != nil {
			fmt.Fprintln(os.Stderr, "hash admin secret:", err)
			os.Exit(1)
		}
	}

	if *userID != "" {
		if err := seedAccount(&out, *databaseURL, *userID, *credits, *plan); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.AccessCodeHash != "" {
			fmt.Printf("ACCESS_CODE_HASH='%s'\n", out.AccessCodeHash)
		}
		if out.AdminSecretHash != "" {
			fmt.Printf("ADMIN_SECRET_HASH='%s'\n", out.AdminSecretHash)
		}
		if out.Balance != nil {
			fmt.Printf("%s balance=%d\n", out.UserID, *out.Balance)
		}
		if out.Plan != "" {
			fmt.Printf("%s plan=%s quota=%d\n", out.UserID, out.Plan, out.PlanQuota)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func seedAccount(out *output, databaseURL, userID string, credits int64, plan string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required with -user-id")
	}
	if credits == 0 && plan == "" {
		return fmt.Errorf("-user-id needs -credits or -plan")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	out.UserID = userID

	if credits != 0 {
		balance, err := repo.GrantCredits(ctx, userID, credits, "bootstrap", model.LedgerGrant)
		if err != nil {
			return fmt.Errorf("grant credits: %w", err)
		}
		out.Balance = &balance
	}

	if plan != "" {
		p := model.NormalizePlan(plan)
		profile, err := repo.SetPlan(ctx, userID, p, model.QuotaFor(p))
		if err != nil {
			return fmt.Errorf("set plan: %w", err)
		}
		out.Plan = string(profile.Plan)
		out.PlanQuota = profile.PlanQuota
	}

	return nil
}
