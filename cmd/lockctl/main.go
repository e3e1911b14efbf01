// Command lockctl drives a lock session from the terminal.  The session
// is persisted in a state file so activate, status and get can run as
// separate invocations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alumnirel/eventlock/internal/utils"
	"github.com/alumnirel/eventlock/pkg/lockclient"
)

const usage = `usage: lockctl [flags] <command> [args]

commands:
  activate <token>     verify a lock token and lock this session to its event
  status               print the session state
  clear                end the lock session
  route <path>         report whether a route is reachable in this session
  get <api-path>       GET an API path, attaching the lock token when locked
  hash-password <pw>   print a bcrypt hash for an admins row

flags:
`

func main() {
	log.SetFlags(0)
	log.SetPrefix("lockctl: ")

	home, _ := os.UserHomeDir()
	api := flag.String("api", envOr("EVENTLOCK_API", "http://localhost:8080"), "lock API base URL")
	state := flag.String("state", filepath.Join(home, ".eventlock", "session.json"), "session state file")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	cost := flag.Int("cost", 12, "bcrypt cost for hash-password")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	hc := &http.Client{Timeout: *timeout}
	m := lockclient.NewMachine(lockclient.NewFileStorage(*state), lockclient.NewClient(*api, hc))
	ctx := context.Background()

	switch cmd := args[0]; cmd {
	case "activate":
		need(args, 2)
		ev, err := m.ActivateLock(ctx, args[1])
		if err != nil {
			var ae *lockclient.ActivationError
			if errors.As(err, &ae) && ae.Err != nil {
				log.Fatalf("%s (%v)", ae.Reason, ae.Err)
			}
			log.Fatal(err)
		}
		fmt.Printf("locked to %s (/event/%s)\n", ev.Name, ev.Slug)
	case "status":
		s := m.State()
		fmt.Println(s.State)
		if s.Event != nil {
			fmt.Printf("event: %s (id %d, /event/%s)\n", s.Event.Name, s.Event.ID, s.Event.Slug)
		}
	case "clear":
		if err := m.ClearLock(); err != nil {
			log.Fatal(err)
		}
		fmt.Println(lockclient.Unlocked)
	case "route":
		need(args, 2)
		if !m.IsRouteAllowed(args[1]) {
			fmt.Println("blocked")
			os.Exit(1)
		}
		fmt.Println("allowed")
	case "get":
		need(args, 2)
		get(ctx, m, hc, *api, args[1])
	case "hash-password":
		need(args, 2)
		h, err := utils.HashPassword(args[1], *cost)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(h)
	default:
		log.Printf("unknown command %q", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func get(ctx context.Context, m *lockclient.Machine, hc *http.Client, api, path string) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	client := &http.Client{
		Timeout:   hc.Timeout,
		Transport: &lockclient.Transport{Machine: m},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(api, "/")+path, nil)
	if err != nil {
		log.Fatal(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	fmt.Fprintln(os.Stderr, resp.Status)
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		log.Fatal(err)
	}
}

func need(args []string, n int) {
	if len(args) < n {
		log.Printf("%s: missing argument", args[0])
		flag.Usage()
		os.Exit(2)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
