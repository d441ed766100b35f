package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/arlowood/itemstore"
)

// openStore opens the store named by cfg using the raw-bytes codec, the
// natural default for a CLI that shells payloads in over stdin/stdout.
func openStore(cfg *itemstore.Config) (*itemstore.Store, error) {
	return itemstore.Open(*cfg, itemstore.BytesCodec.Put, itemstore.BytesCodec.Get)
}

// PutCmd reads a payload from stdin and stores it, printing the new id.
func PutCmd(cfg *itemstore.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("put", flag.ContinueOnError),
		Usage: "put",
		Short: "Store a payload read from stdin",
		Long:  "Read a payload from stdin, store it, and print the resulting id.",
		Exec: func(o *IO, _ []string) error {
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			payload, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			item, err := s.Store(payload)
			if err != nil {
				return fmt.Errorf("storing payload: %w", err)
			}

			o.Println(item.ID)
			return nil
		},
	}
}

// GetCmd prints the payload for <id> to stdout.
func GetCmd(cfg *itemstore.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <id>",
		Short: "Print the payload for an id",
		Exec: func(o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: missing <id>", itemstore.ErrInvalidArgument)
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			item, err := s.Get(id)
			if err != nil {
				return fmt.Errorf("getting %d: %w", id, err)
			}

			payload, ok := item.Payload.([]byte)
			if !ok {
				return fmt.Errorf("%w: stored value is not []byte", itemstore.ErrInvalidState)
			}
			_, werr := o.Out.Write(payload)
			return werr
		},
	}
}

// UpdateCmd replaces the payload for <id> with the contents of stdin.
func UpdateCmd(cfg *itemstore.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("update", flag.ContinueOnError),
		Usage: "update <id>",
		Short: "Replace an item's payload with stdin",
		Exec: func(o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: missing <id>", itemstore.ErrInvalidArgument)
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			payload, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			if _, err := s.Update(id, payload); err != nil {
				return fmt.Errorf("updating %d: %w", id, err)
			}

			o.Println("updated", id)
			return nil
		},
	}
}

// DeleteCmd removes <id>.
func DeleteCmd(cfg *itemstore.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete", flag.ContinueOnError),
		Usage: "delete <id>",
		Short: "Delete an item",
		Exec: func(o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: missing <id>", itemstore.ErrInvalidArgument)
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(id); err != nil {
				return fmt.Errorf("deleting %d: %w", id, err)
			}

			o.Println("deleted", id)
			return nil
		},
	}
}

// StatsCmd prints space and item accounting as JSON.
func StatsCmd(cfg *itemstore.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("stats", flag.ContinueOnError),
		Usage: "stats",
		Short: "Print space and item accounting as JSON",
		Exec: func(o *IO, _ []string) error {
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats()
			if err != nil {
				return err
			}
			out, err := stats.JSON()
			if err != nil {
				return err
			}

			o.Printf("%s\n", out)
			return nil
		},
	}
}

// OrganizeCmd runs Organize on the store.
func OrganizeCmd(cfg *itemstore.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("organize", flag.ContinueOnError),
		Usage: "organize",
		Short: "Compact free description slots and data ranges",
		Exec: func(o *IO, _ []string) error {
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Organize(); err != nil {
				return err
			}

			o.Println("organized")
			return nil
		},
	}
}

func parseID(s string) (itemstore.StoreID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", itemstore.ErrInvalidArgument, s)
	}
	return itemstore.StoreID(v), nil
}

// allCommands returns every itemstorectl subcommand bound to cfg.
func allCommands(cfg *itemstore.Config) []*Command {
	return []*Command{
		PutCmd(cfg),
		GetCmd(cfg),
		UpdateCmd(cfg),
		DeleteCmd(cfg),
		StatsCmd(cfg),
		OrganizeCmd(cfg),
	}
}
