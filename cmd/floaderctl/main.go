// Command floaderctl is a small operator front end over the feature
// loader: given a plugin list on the command line, it loads it against the
// native and static module sources and prints the resulting loaded feature
// set.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	featureloader "github.com/GoCodeAlone/featureloader"
	"github.com/GoCodeAlone/featureloader/integrity"
	"github.com/GoCodeAlone/featureloader/module"
	"github.com/GoCodeAlone/featureloader/searchpath"
)

func main() {
	var (
		pluginDir      = flag.String("plugin-dir", "", "additional native plugin search directory")
		cosignIssuer   = flag.String("cosign-issuer", "", "cosign OIDC issuer required to verify native plugins")
		cosignIdentity = flag.String("cosign-identity", ".*", "cosign allowed certificate identity regexp")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: floaderctl [flags] \"plugin list\"")
		os.Exit(2)
	}

	sp := searchpath.New("")
	if *pluginDir != "" {
		sp.AddDir(*pluginDir)
	}

	var checker integrity.Checker
	if *cosignIssuer != "" {
		checker = integrity.NewCosignChecker(*cosignIssuer, *cosignIdentity)
	}

	loader := featureloader.New(
		featureloader.WithSearchPath(sp),
		featureloader.WithSource(module.NewNativeSource(checker)),
		featureloader.WithSource(module.NewStaticSource()),
	)

	ok, err := loader.Load(flag.Arg(0))
	if err != nil {
		slog.Error("invalid plugin list", "error", err)
		os.Exit(2)
	}

	stats := loader.Stats()
	slog.Info("load complete",
		"ok", ok,
		"loaded_plugins", loader.LoadedPlugins(),
		"failed", stats.Failed,
		"depends", stats.Depends,
		"critical", stats.Critical,
	)

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, e := range loader.Enumerate() {
		fmt.Fprintf(w, "%s:\n", e.Name)
		for _, f := range e.Features {
			fmt.Fprintf(w, "  %s\n", f.Capability)
		}
	}

	if !ok {
		os.Exit(1)
	}
}
