package main

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/api_functions"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/directory"
	"github.com/HannahMarsh/simple-onion-routing/internal/network"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *options) *cobra.Command {
	var from, to int
	var message string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Ask a user to send a message to another user",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := opts.cfg.URL(opts.cfg.UserAddress(from)) + "/sendMessage"
			body := structs.SendMessageBody{Message: message, DestinationUserID: to}
			if _, err := api_functions.PostJSON(opts.context(cmd), opts.client, url, body, false); err != nil {
				return errors.Wrapf(err, "user %d failed to send", from)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d sent %q to user %d\n", from, message, to)
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "sending user id")
	cmd.Flags().IntVar(&to, "to", 1, "receiving user id")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

type stringResult struct {
	Result *string `json:"result"`
}

type intResult struct {
	Result *int `json:"result"`
}

type circuitResult struct {
	Result []int `json:"result"`
}

func newCircuitCmd(opts *options) *cobra.Command {
	var user int
	cmd := &cobra.Command{
		Use:   "circuit",
		Short: "Print the relays of a user's last circuit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res circuitResult
			url := opts.cfg.URL(opts.cfg.UserAddress(user)) + "/getLastCircuit"
			if err := api_functions.GetJSON(opts.context(cmd), opts.client, url, &res); err != nil {
				return err
			}
			if len(res.Result) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "user %d has not built a circuit yet\n", user)
				return nil
			}
			hops := make([]string, len(res.Result))
			for i, id := range res.Result {
				hops[i] = fmt.Sprintf("relay %d (%d)", id, opts.cfg.RelayAddress(id))
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(hops, " -> "))
			return nil
		},
	}
	cmd.Flags().IntVar(&user, "user", 0, "user id")
	return cmd
}

func newUserStateCmd(opts *options) *cobra.Command {
	var user int
	cmd := &cobra.Command{
		Use:   "user-state",
		Short: "Print the last message a user sent and received",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := opts.cfg.URL(opts.cfg.UserAddress(user))
			for _, route := range []string{"getLastSentMessage", "getLastReceivedMessage"} {
				var res stringResult
				if err := api_functions.GetJSON(opts.context(cmd), opts.client, base+"/"+route, &res); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", route, orNull(res.Result))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&user, "user", 0, "user id")
	return cmd
}

func newRelayStateCmd(opts *options) *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:   "relay-state",
		Short: "Print what a relay last received and where it sent it",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := opts.cfg.URL(opts.cfg.RelayAddress(id))
			ctx := opts.context(cmd)
			for _, route := range []string{"getLastReceivedEncryptedMessage", "getLastReceivedDecryptedMessage"} {
				var res stringResult
				if err := api_functions.GetJSON(ctx, opts.client, base+"/"+route, &res); err != nil {
					return err
				}
				value := orNull(res.Result)
				if res.Result != nil && len(value) > 64 {
					value = fmt.Sprintf("%s... (%d base64 chars)", value[:64], len(value))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", route, value)
			}
			var dest intResult
			if err := api_functions.GetJSON(ctx, opts.client, base+"/getLastMessageDestination", &dest); err != nil {
				return err
			}
			if dest.Result == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "getLastMessageDestination: null")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "getLastMessageDestination: %d (%s)\n", *dest.Result, opts.cfg.AddressToName(*dest.Result))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "relay id")
	return cmd
}

func newRegistryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the node registry",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered relays",
		RunE: func(cmd *cobra.Command, args []string) error {
			relays, err := directory.NewHTTPDirectory(opts.cfg.RegistryURL(), opts.cfg.TransportTimeout()).GetAllRelays(opts.context(cmd))
			if err != nil {
				return err
			}
			for _, r := range relays {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\t%s\n", r.ID, opts.cfg.RelayAddress(r.ID), r.PublicKey)
			}
			return nil
		},
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the registered relays to a YAML file usable as directory_file",
		RunE: func(cmd *cobra.Command, args []string) error {
			relays, err := directory.NewHTTPDirectory(opts.cfg.RegistryURL(), opts.cfg.TransportTimeout()).GetAllRelays(opts.context(cmd))
			if err != nil {
				return err
			}
			if err := directory.WriteSnapshot(out, relays); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d relays to %s\n", len(relays), out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "relays.yml", "output file")

	cmd.AddCommand(list, export)
	return cmd
}

func newPrometheusConfigCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "prometheus-config",
		Short: "Write a Prometheus scrape config for every node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.WritePrometheusConfig(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "prometheus.yml", "output file")
	return cmd
}

func newKeygenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair with the configured asymmetric suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := network.NewKeyService(opts.cfg)
			if err != nil {
				return err
			}
			kp, err := ks.GenerateKeyPair()
			if err != nil {
				return err
			}
			pub, err := ks.ExportPublicKey(kp.Public)
			if err != nil {
				return err
			}
			priv, err := ks.ExportPrivateKey(kp.Private)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public: %s\nprivate: %s\n", pub, priv)
			return nil
		},
	}
}

func newPeelCmd(opts *options) *cobra.Command {
	var privateKey, blob string
	cmd := &cobra.Command{
		Use:   "peel",
		Short: "Remove one layer from a base64 onion with an exported private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := network.NewKeyService(opts.cfg)
			if err != nil {
				return err
			}
			priv, err := ks.ImportPrivateKey(privateKey)
			if err != nil {
				return errors.Wrap(err, "bad private key")
			}
			raw, err := base64.StdEncoding.DecodeString(blob)
			if err != nil {
				return errors.Wrap(err, "onion is not base64")
			}
			nextHop, residual, err := onion.NewCodec(ks).DecodeLayer(priv, raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "next hop: %d\nresidual: %s\n", nextHop, base64.StdEncoding.EncodeToString(residual))
			return nil
		},
	}
	cmd.Flags().StringVar(&privateKey, "private-key", "", "exported private key (as served by a relay's /getPrivateKey)")
	cmd.Flags().StringVar(&blob, "onion", "", "base64 onion")
	_ = cmd.MarkFlagRequired("private-key")
	_ = cmd.MarkFlagRequired("onion")
	return cmd
}

func orNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
