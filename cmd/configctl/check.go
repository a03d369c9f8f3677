package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/KevinKickass/AlarmConfigurator/internal/api/grpcapi"
	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

const remoteTimeout = 10 * time.Second

var errInvalidSelection = errors.New("selection violates the system limits")

// selectionFile is the on-disk selection, YAML or JSON:
//
//	context: retail
//	selection:
//	  - id: motion
//	    quantity: 10
type selectionFile struct {
	Context   string `yaml:"context"`
	Selection []struct {
		ID       string `yaml:"id"`
		Quantity int    `yaml:"quantity"`
	} `yaml:"selection"`
}

// evaluator is satisfied by the in-process service and the gRPC client.
type evaluator interface {
	Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Price(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type remoteEvaluator struct {
	client *grpcapi.Client
}

func (r remoteEvaluator) Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return r.client.Validate(ctx, in)
}

func (r remoteEvaluator) Price(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return r.client.Price(ctx, in)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a selection and list the auto-appended items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, evaluator.Validate)
	},
}

var priceCmd = &cobra.Command{
	Use:     "price",
	Aliases: []string{"quote"},
	Short: "Price a selection including auto-appended items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, evaluator.Price)
	},
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, priceCmd} {
		c.Flags().StringP("selection", "s", "", "selection file (YAML or JSON)")
		c.Flags().String("context", "", "property context, overrides the selection file")
		c.Flags().String("server", "", "gRPC address of a running server (env ALARMCFG_SERVER)")
		_ = c.MarkFlagRequired("selection")
		rootCmd.AddCommand(c)
	}
}

func runCheck(cmd *cobra.Command, call func(evaluator, context.Context, *structpb.Struct) (*structpb.Struct, error)) error {
	path, _ := cmd.Flags().GetString("selection")
	override, _ := cmd.Flags().GetString("context")

	pctx, sel, err := readSelection(path, override)
	if err != nil {
		return err
	}
	in, err := grpcapi.EncodeRequest(pctx, sel)
	if err != nil {
		return err
	}

	target, closeFn, err := newEvaluator(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
	defer cancel()

	out, err := call(target, ctx, in)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), out)
}

// newEvaluator dials --server when set and evaluates in-process otherwise.
func newEvaluator(cmd *cobra.Command) (evaluator, func(), error) {
	addr, _ := cmd.Flags().GetString("server")
	if addr == "" {
		addr = viper.GetString("server")
	}

	if addr != "" {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		return remoteEvaluator{client: grpcapi.NewClient(conn)}, func() { conn.Close() }, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger()
	provider, err := loadProvider(cfg.Catalog, logger)
	if err != nil {
		return nil, nil, err
	}
	base, err := pricing.ParseBasePrice(cfg.Pricing.BasePrice)
	if err != nil {
		return nil, nil, err
	}
	return grpcapi.NewService(provider, cfg.Limits, base, logger), func() {}, nil
}

func readSelection(path, contextOverride string) (types.PropertyContext, []types.SelectionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read selection: %w", err)
	}

	// JSON ist gueltiges YAML
	var f selectionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("failed to parse selection %s: %w", path, err)
	}

	raw := f.Context
	if contextOverride != "" {
		raw = contextOverride
	}
	pctx := types.ContextResidential
	if raw != "" {
		var ok bool
		if pctx, ok = types.ParseContext(raw); !ok {
			return "", nil, fmt.Errorf("unsupported property context: %s", raw)
		}
	}

	sel := make([]types.SelectionEntry, 0, len(f.Selection))
	for _, e := range f.Selection {
		sel = append(sel, types.SelectionEntry{ID: e.ID, Quantity: e.Quantity})
	}
	return pctx, sel, nil
}

// writeResult prints the response indented and reports an invalid
// selection through the exit code.
func writeResult(w io.Writer, out *structpb.Struct) error {
	data, err := out.MarshalJSON()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	if valid, ok := out.AsMap()["is_valid"].(bool); ok && !valid {
		return errInvalidSelection
	}
	return nil
}
