// Command chatd-seed creates the schema and loads sample accounts and
// conversations from a JSON data file, the chatd analogue of
// tinode-db/main.go: flag-driven and config-file-driven, with random
// passwords generated for sample users whose entry has none. Schema
// creation only adds missing tables; existing tables and rows are kept.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"

	"github.com/chatd/chatd/internal/auth"
	"github.com/chatd/chatd/internal/config"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
)

// seedUser mirrors one entry of the sample data file's "users" array.
type seedUser struct {
	Account     string `json:"account"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// seedGroup mirrors one entry of the sample data file's "groups" array:
// a GROUP conversation owned by Owner with the listed Members.
type seedGroup struct {
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
}

type seedData struct {
	Users  []seedUser  `json:"users"`
	Groups []seedGroup `json:"groups"`
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomPassword(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func main() {
	var datafile string
	var configPath string
	var reset bool
	flag.StringVar(&datafile, "data", "", "path to a JSON file with sample users/groups")
	flag.StringVar(&configPath, "config", "", "path to chatd's config file")
	flag.BoolVar(&reset, "reset", false, "accepted for compatibility; only logs a notice, no tables are dropped")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("chatd-seed: config load failed: %v", err)
	}

	var data seedData
	if datafile != "" {
		f, err := os.Open(datafile)
		if err != nil {
			log.Fatalf("chatd-seed: opening data file: %v", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&data); err != nil {
			log.Fatalf("chatd-seed: parsing data file: %v", err)
		}
	}

	store := mysql.New()
	if err := store.Open(cfg.MySQLDSN); err != nil {
		log.Fatalf("chatd-seed: opening store: %v", err)
	}
	defer store.Close()

	if reset {
		log.Println("chatd-seed: -reset does not drop tables; creating any missing tables")
	}
	if err := store.CreateSchema(); err != nil {
		log.Fatalf("chatd-seed: schema creation failed: %v", err)
	}

	verifier := auth.NewBcryptVerifier()
	byAccount := make(map[string]int64, len(data.Users))

	for _, su := range data.Users {
		password := su.Password
		if password == "" {
			password = randomPassword(10)
		}
		hashed, err := verifier.Hash(password)
		if err != nil {
			log.Fatalf("chatd-seed: hashing password for %s: %v", su.Account, err)
		}
		u := &types.User{Account: su.Account, Password: hashed, DisplayName: su.DisplayName}
		if err := store.UserCreate(u); err != nil {
			log.Printf("chatd-seed: skipping %s: %v", su.Account, err)
			continue
		}
		byAccount[su.Account] = u.ID
		log.Printf("chatd-seed: created user %s (id=%d, password=%s)", su.Account, u.ID, password)
	}

	worldID, err := store.WorldConversationID()
	if err != nil {
		log.Fatalf("chatd-seed: world conversation unavailable: %v", err)
	}
	for _, id := range byAccount {
		if err := store.MemberAdd(worldID, id, types.RoleMember); err != nil {
			log.Printf("chatd-seed: joining world conversation for user %d: %v", id, err)
		}
	}

	for _, sg := range data.Groups {
		ownerID, ok := byAccount[sg.Owner]
		if !ok {
			log.Printf("chatd-seed: skipping group %s: unknown owner %s", sg.Name, sg.Owner)
			continue
		}
		memberIDs := make([]int64, 0, len(sg.Members))
		for _, acc := range sg.Members {
			if id, ok := byAccount[acc]; ok {
				memberIDs = append(memberIDs, id)
			}
		}
		if len(memberIDs) == 0 {
			log.Printf("chatd-seed: skipping group %s: no resolvable members", sg.Name)
			continue
		}
		convID, err := store.ConversationCreateGroup(sg.Name, ownerID, memberIDs)
		if err != nil {
			log.Printf("chatd-seed: creating group %s: %v", sg.Name, err)
			continue
		}
		log.Printf("chatd-seed: created group %s (id=%d)", sg.Name, convID)
	}

	log.Println("chatd-seed: done")
}
