// Package node talks to a network node's CLI and applies resolved command
// references to it.
//
// Client abstracts the device: Show runs an exec-mode command and Config
// applies configuration lines. SSHClient implements it over SSH exec
// sessions. Get and Set drive a Client from a cmdref.CmdRef, using its
// config_get, config_get_token and config_set attributes.
//
//	ref, _ := features.DefaultReference("cli", "N9K")
//	client, _ := node.NewSSHClient(node.DefaultSSHConfig("n9k-1", "admin"))
//	_ = client.Connect(ctx)
//	names, _ := node.Get(ctx, client, ref.MustLookup("vrf", "vrf_all"))
package node
