package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/drpcorg/binmeta"
	"github.com/drpcorg/binmeta/codec"
	"github.com/drpcorg/binmeta/schema"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var (
	ErrBadArgs = errors.New("bad arguments")
	ErrBadKind = errors.New("unsupported value kind")
)

const help = `types                               list known types
show <type>                         print a type's fields
json <type>                         print a type as JSON
write <type> name:kind=value ...    encode an object, publishing new fields
                                    kinds: bool int long double string bytes uuid time
exit, quit
`

// REPL per se.
type REPL struct {
	mgr *binmeta.Manager
	out io.Writer
}

// Execute runs one command line. io.EOF means the session is over.
func (repl *REPL) Execute(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "help":
		_, _ = io.WriteString(repl.out, help)
		return nil
	case "types":
		return repl.CommandTypes(ctx)
	case "show":
		return repl.CommandShow(ctx, args)
	case "json":
		return repl.CommandJSON(ctx, args)
	case "write":
		return repl.CommandWrite(ctx, args)
	case "exit", "quit":
		return io.EOF
	default:
		return fmt.Errorf("command unknown: %s", cmd)
	}
}

func (repl *REPL) CommandTypes(ctx context.Context) error {
	types, err := repl.mgr.Registry().Types(ctx)
	if err != nil {
		return err
	}
	for _, t := range types {
		_, _ = fmt.Fprintf(repl.out, "%d\t%s\trev %d\t%d fields\n",
			t.TypeID(), t.TypeName(), t.Revision(), t.Len())
	}
	return nil
}

func (repl *REPL) snapshot(ctx context.Context, args []string) (*schema.Snapshot, error) {
	if len(args) != 1 {
		return nil, ErrBadArgs
	}
	return repl.mgr.Snapshot(ctx, args[0])
}

func (repl *REPL) CommandShow(ctx context.Context, args []string) error {
	snap, err := repl.snapshot(ctx, args)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(repl.out, "%s #%d rev %d\n", snap.TypeName(), snap.TypeID(), snap.Revision())
	for f := range snap.Fields() {
		_, _ = fmt.Fprintf(repl.out, "\t%d\t%s\t%s\n", f.ID, f.Name, f.Type)
	}
	return nil
}

func (repl *REPL) CommandJSON(ctx context.Context, args []string) error {
	snap, err := repl.snapshot(ctx, args)
	if err != nil {
		return err
	}
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(repl.out, string(out))
	return err
}

func (repl *REPL) CommandWrite(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return ErrBadArgs
	}
	w, err := codec.NewWriter(ctx, repl.mgr, args[0])
	if err != nil {
		return err
	}
	for _, arg := range args[1:] {
		if err := writeArg(w, arg); err != nil {
			return err
		}
	}
	data, snap, err := w.Finish(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(repl.out, "%s rev %d\n%x\n", snap.TypeName(), snap.Revision(), data)
	return nil
}

// writeArg parses one name:kind=value argument into w.
func writeArg(w *codec.Writer, arg string) error {
	decl, value, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("%w: %q, want name:kind=value", ErrBadArgs, arg)
	}
	name, kind, ok := strings.Cut(decl, ":")
	if !ok || name == "" {
		return fmt.Errorf("%w: %q, want name:kind=value", ErrBadArgs, arg)
	}
	switch kind {
	case "bool":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		w.WriteBool(name, v)
	case "int":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return err
		}
		w.WriteInt32(name, int32(v))
	case "long":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		w.WriteInt64(name, v)
	case "double":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		w.WriteFloat64(name, v)
	case "string":
		w.WriteString(name, value)
	case "bytes":
		v, err := hex.DecodeString(value)
		if err != nil {
			return err
		}
		w.WriteBytes(name, v)
	case "uuid":
		v, err := uuid.Parse(value)
		if err != nil {
			return err
		}
		w.WriteUUID(name, v)
	case "time":
		v, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return err
		}
		w.WriteTime(name, v)
	default:
		return fmt.Errorf("%w: %s", ErrBadKind, kind)
	}
	return w.Err()
}
