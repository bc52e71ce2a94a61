package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	kademlia "github.com/eduardo-mdc/Public-Ledger-For-Auctions"
)

// Flag-based entrypoint grounded on
// adityasissodiya-d7024e/labs/kademlia/cmd/cli/main.go's addr/bootstrap/id
// flags, adapted to this module's identity and option surface.
func main() {
	addr := flag.String("addr", "127.0.0.1:0", "TCP listen address for this node")
	bootstrap := flag.String("bootstrap", "", "optional bootstrap host:port to join on startup")
	difficulty := flag.Int("difficulty", kademlia.DefaultC1, "proof-of-work difficulty (leading zero bits required of node id)")
	k := flag.Int("k", kademlia.DefaultK, "k-bucket replication parameter")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()
	log := logger.Sugar()

	node, err := kademlia.NewNode(*addr,
		kademlia.WithDifficulty(*difficulty),
		kademlia.WithK(*k),
		kademlia.WithLogger(log),
	)
	if err != nil {
		log.Fatalw("failed to start node", "error", err)
	}
	log.Infow("node identity ready", "id", node.Identity.ID.String(), "address", node.Address)

	if s := strings.TrimSpace(*bootstrap); s != "" {
		if err := node.Bootstrap(s); err != nil {
			log.Fatalw("bootstrap failed", "bootstrap", s, "error", err)
		}
	}

	go node.Serve()
	log.Infow("serving", "address", node.Address)

	runREPL(context.Background(), node, log)
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

// runREPL offers a minimal interactive shell over the running node:
// "table" prints the routing table, "put <key> <value>" and
// "get <key>" exercise the node's local value store, and "quit" or
// "exit" closes the node. There is no lookup command. Adapted
// from the teacher's examples/ demo programs (find_nodes, pinger),
// generalized into a single CLI instead of one binary per RPC.
func runREPL(ctx context.Context, node *kademlia.Node, log *zap.SugaredLogger) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: table | put <key> <value> | get <key> | quit")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "table":
			fmt.Println(node.RoutingTable().String())
		case "put":
			if len(fields) < 3 {
				fmt.Println("usage: put <key> <value>")
				continue
			}
			node.Store().Put([]byte(fields[1]), []byte(strings.Join(fields[2:], " ")))
			fmt.Println("ok")
		case "get":
			if len(fields) < 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			if v, ok := node.Store().Get([]byte(fields[1])); ok {
				fmt.Println(string(v))
			} else {
				fmt.Println("(not found locally)")
			}
		case "quit", "exit":
			node.Close()
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
