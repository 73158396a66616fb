package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cyphal-go/transport/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and modify application registry parameters",
}

var registryGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a register's current value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openDemoRegistry()
		if err != nil {
			return err
		}
		v, flags, err := reg.Get(args[0])
		if err != nil {
			return fmt.Errorf("get %q: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, mutable=%t, persistent=%t) = %s\n",
			args[0], v.Kind, flags.Mutable, flags.Persistent, formatValue(v))
		return nil
	},
}

var registrySetCmd = &cobra.Command{
	Use:   "set <key> <i32-value>",
	Short: "Set a register from an i32 literal, coerced to the register's kind",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("parse value: %w", err)
		}
		reg, err := openDemoRegistry()
		if err != nil {
			return err
		}
		if err := reg.Set(args[0], registry.Int(registry.KindI32, n)); err != nil {
			return fmt.Errorf("set %q: %w", args[0], err)
		}
		if err := reg.SaveTOML(cfg.RegistryPersistPath); err != nil {
			return fmt.Errorf("persist registry: %w", err)
		}
		v, flags, _ := reg.Get(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, mutable=%t, persistent=%t) = %s\n",
			args[0], v.Kind, flags.Mutable, flags.Persistent, formatValue(v))
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every defined register",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openDemoRegistry()
		if err != nil {
			return err
		}
		for _, key := range reg.Keys() {
			v, flags, _ := reg.Get(key)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, mutable=%t, persistent=%t) = %s\n",
				key, v.Kind, flags.Mutable, flags.Persistent, formatValue(v))
		}
		return nil
	},
}

// openDemoRegistry builds the small set of registers a Cyphal node
// typically exposes (node id, a couple of service-level tunables) and
// restores any persisted values, so get/set has something to act on.
func openDemoRegistry() (*registry.Registry, error) {
	reg := registry.New(log)
	reg.Define("uavcan.node.id", registry.Uint(registry.KindU16, 65535), true, true, nil)
	reg.Define("uavcan.node.description", registry.String(""), true, true, nil)
	reg.Define("uavcan.pub.demo.id", registry.Uint(registry.KindU16, 0), true, true, nil)
	if err := reg.LoadTOML(cfg.RegistryPersistPath); err != nil {
		return nil, fmt.Errorf("restore registry: %w", err)
	}
	return reg, nil
}

func formatValue(v registry.Value) string {
	switch v.Kind {
	case registry.KindString:
		return v.Str
	case registry.KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case registry.KindBool:
		return fmt.Sprint(v.Bools)
	case registry.KindF32, registry.KindF64:
		return fmt.Sprint(v.Floats)
	default:
		if len(v.Uints) > 0 {
			return fmt.Sprint(v.Uints)
		}
		return fmt.Sprint(v.Ints)
	}
}

func init() {
	registryCmd.AddCommand(registryGetCmd)
	registryCmd.AddCommand(registrySetCmd)
	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
