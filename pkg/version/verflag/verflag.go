package verflag

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"swrgateway/pkg/version"
)

var versionFlag *bool

func AddFlags(fs *pflag.FlagSet) {
	versionFlag = fs.Bool("version", false, "Print version information and quit")
}

// PrintAndExitIfRequested checks the --version flag and, if set, prints
// the version and exits.
func PrintAndExitIfRequested() {
	if versionFlag != nil && *versionFlag {
		fmt.Printf("%#v\n", version.Get())
		os.Exit(0)
	}
}
