package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"keychat/client"
	"keychat/domain"
	"keychat/infrastructure/stacks"
	"keychat/observability"
	"keychat/repositories"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const usage = `usage: client [chat|stats|keygen]

  chat    sign the relay challenge and chat in SUBJECT's room (default)
  stats   print the relay statistics (STATS_ENABLED on the relay)
  keygen  generate a key pair and print its address`

type Config struct {
	RelayURL   string `envconfig:"RELAY_URL" default:"http://localhost:3010"`
	PrivateKey string `envconfig:"PRIVATE_KEY"`
	Subject    string `envconfig:"SUBJECT"`
	Network    string `envconfig:"STACKS_NETWORK" default:"testnet"`
	// KEYCHAT_COLOURS enables colorized output
	Colours bool `envconfig:"KEYCHAT_COLOURS" default:"true"`
}

// statsDocument mirrors the relay's /stats payload.
type statsDocument struct {
	observability.Snapshot
	RecentSessions []repositories.AuditRecord `json:"recent_sessions"`
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	network, err := stacks.ParseNetwork(config.Network)
	if err != nil {
		return exitConfig, err
	}
	color.Enable = config.Colours

	command := "chat"
	if len(args) > 0 {
		command = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "keygen":
		return keygen(network)
	case "stats":
		c, err := client.New(config.RelayURL, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			return exitConfig, err
		}
		return stats(ctx, c)
	case "chat":
		if config.PrivateKey == "" || config.Subject == "" {
			return exitConfig, fmt.Errorf("chat requires PRIVATE_KEY and SUBJECT")
		}
		key, err := client.ParsePrivateKey(config.PrivateKey)
		if err != nil {
			return exitConfig, err
		}
		c, err := client.New(config.RelayURL, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			return exitConfig, err
		}
		return chat(ctx, c, key, network, domain.RoomID(config.Subject))
	default:
		fmt.Fprintln(os.Stderr, usage)
		return exitConfig, fmt.Errorf("unknown command %q", command)
	}
}

func keygen(network stacks.Network) (int, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return exitRuntime, err
	}
	publicKey := hex.EncodeToString(key.PubKey().SerializeCompressed())
	address, err := stacks.NewAddressDeriver(network).Derive(publicKey)
	if err != nil {
		return exitRuntime, err
	}
	fmt.Printf("PRIVATE_KEY=%s01\n", hex.EncodeToString(key.Serialize()))
	fmt.Printf("public key: %s\n", publicKey)
	fmt.Printf("address:    %s\n", color.Green.Render(address))
	return exitOK, nil
}

func chat(ctx context.Context, c *client.Client, key *secp256k1.PrivateKey, network stacks.Network, subject domain.RoomID) (int, error) {
	self, err := stacks.NewAddressDeriver(network).Derive(hex.EncodeToString(key.PubKey().SerializeCompressed()))
	if err != nil {
		return exitConfig, err
	}

	session, err := c.Connect(ctx, key, subject)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = session.Close() }()

	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf("  ====== %s @ %s ======", self, subject)))

	received := make(chan error, 1)
	go func() {
		for {
			broadcast, err := session.Receive()
			if err != nil {
				received <- err
				return
			}
			holder := color.Cyan.Render(broadcast.Holder)
			if broadcast.Holder == self {
				holder = color.Green.Render("you")
			}
			fmt.Printf("%s %s: %s\n", color.Gray.Render(time.Now().Format("15:04:05")), holder, broadcast.Message)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if line == "" {
				continue
			}
			if err := session.Send(line); err != nil {
				return exitRuntime, err
			}
		case err := <-received:
			if client.IsRejected(err) {
				fmt.Println(color.Red.Render("Rejected by the relay: not a key holder of " + subject.String()))
				return exitRuntime, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
	}
}

func stats(ctx context.Context, c *client.Client) (int, error) {
	var doc statsDocument
	if err := c.Stats(ctx, &doc); err != nil {
		return exitRuntime, err
	}

	counters := newTable([]string{"Counter", "Value"})
	counters.Append([]string{"uptime", (time.Duration(doc.UptimeSeconds) * time.Second).String()})
	counters.Append([]string{"members", strconv.Itoa(doc.Members)})
	counters.Append([]string{"admitted", strconv.FormatUint(doc.Admitted, 10)})
	reasons := make([]string, 0, len(doc.Rejected))
	for reason := range doc.Rejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		counters.Append([]string{"rejected " + reason, strconv.FormatUint(doc.Rejected[reason], 10)})
	}
	counters.Append([]string{"oracle failures", strconv.FormatUint(doc.OracleFailures, 10)})
	counters.Append([]string{"disconnected", strconv.FormatUint(doc.Disconnected, 10)})
	counters.Append([]string{"relayed", strconv.FormatUint(doc.Relayed, 10)})
	counters.Append([]string{"delivered", strconv.FormatUint(doc.Delivered, 10)})
	counters.Append([]string{"dropped", strconv.FormatUint(doc.Dropped, 10)})
	counters.Append([]string{"rss", fmt.Sprintf("%.1f MiB", float64(doc.Process.RSSBytes)/(1<<20))})
	counters.Append([]string{"cpu", fmt.Sprintf("%.1f%%", doc.Process.CPUPercent)})
	counters.Append([]string{"goroutines", strconv.Itoa(doc.Process.Goroutines)})
	counters.Render()
	fmt.Println()

	rooms := newTable([]string{"Room", "Members"})
	names := make([]string, 0, len(doc.Rooms))
	for room := range doc.Rooms {
		names = append(names, room)
	}
	sort.Strings(names)
	for _, room := range names {
		rooms.Append([]string{room, strconv.Itoa(doc.Rooms[room])})
	}
	rooms.Render()

	if len(doc.RecentSessions) > 0 {
		fmt.Println()
		sessions := newTable([]string{"At", "Kind", "Room", "Holder", "Reason", "From"})
		for _, r := range doc.RecentSessions {
			sessions.Append([]string{
				r.At.Local().Format("15:04:05"),
				string(r.Kind),
				r.Room.String(),
				r.Holder.String(),
				r.Reason,
				r.RemoteAddr,
			})
		}
		sessions.Render()
	}
	return exitOK, nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
