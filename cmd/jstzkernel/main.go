// Command jstzkernel is a local devnet host for the kernel library: it
// drives kernel.Run against a fixed inbox recorded as newline-delimited
// JSON, backed by an in-memory store. It stands in for the real rollup
// kernel SDK host, which embeds this same library inside a WASM PVM
// invocation rather than a long-running process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"jstz.dev/kernel/kernel"
	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/receipt"
	"jstz.dev/kernel/runtime/fakeengine"
	"jstz.dev/kernel/store"
	"jstz.dev/kernel/tezos"
)

var (
	configFlag    string
	inboxFlag     string
	rollupFlag    string
	debugReceipts bool
)

func init() {
	flag.StringVar(&configFlag, "config", "", "yaml config file (ticketer/injector seeds, outbox capacity)")
	flag.StringVar(&inboxFlag, "inbox", "", "newline-delimited JSON inbox file to replay")
	flag.StringVar(&rollupFlag, "rollup", "", "this rollup instance's own address (KT1...); defaults to the derived ticketer address if empty")
	flag.BoolVar(&debugReceipts, "debug-receipts", true, "mirror receipts to the debug log")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jstzkernel:", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := loadConfig(configFlag)
	if err != nil {
		return errors.Wrap(err, "loading config")
	}
	if inboxFlag != "" {
		cfg.InboxFile = inboxFlag
	}
	if rollupFlag != "" {
		cfg.RollupAddress = rollupFlag
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "debug-receipts" {
			cfg.DebugReceipts = debugReceipts
		}
	})
	if cfg.InboxFile == "" {
		return errors.New("no inbox file given (-inbox or JSTZ_INBOX_FILE)")
	}

	keys, err := deriveKeys(cfg)
	if err != nil {
		return errors.Wrap(err, "deriving devnet keys")
	}

	rollupAddress := keys.Ticketer
	if cfg.RollupAddress != "" {
		rollupAddress, err = tezos.ParseAddress(cfg.RollupAddress)
		if err != nil {
			return errors.Wrap(err, "parsing -rollup address")
		}
	}

	messages, err := loadInbox(cfg.InboxFile, keys.Ticketer, rollupAddress)
	if err != nil {
		return errors.Wrap(err, "loading inbox file")
	}

	storage := kv.NewStorage(store.NewMemStore(), cfg.OutboxCapacity)
	tx := storage.Begin()
	kernel.SeedConfig(tx, keys.Ticketer, keys.Injector, rollupAddress)
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "seeding configuration")
	}

	fmt.Printf("jstzkernel: ticketer=%s injector=%s rollup=%s\n", keys.Ticketer, keys.Injector.Address(), rollupAddress)

	host := &fileHost{messages: messages}
	kernel.Run(context.Background(), host, storage, kernel.Config{
		Engine:   fakeengine.New(),
		Receipts: receipt.Options{WithDebugReceipts: cfg.DebugReceipts},
	})

	fmt.Printf("jstzkernel: processed %d inbox messages, %d outbox messages pending\n", len(messages), len(storage.Outbox()))
	return nil
}
