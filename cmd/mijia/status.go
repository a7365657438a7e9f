package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/mijia/internal/rpc"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coordinator state and cached readings",
	Long: `Shows the state of a running 'mijia serve': the controller, whether it is
still polling, how many full passes completed, why it faulted (if it did) and
the cached reading of every sensor with its age.

Examples:
  mijia status
  mijia status --host http://pi.local:8080`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusHost string

func init() {
	statusCmd.Flags().StringVar(&statusHost, "host", defaultHost, "Address of the mijia server")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	// only validates --log-level; status does not log
	if _, err := configureLogger(cmd, clientConfig(logrus.PanicLevel)); err != nil {
		return err
	}

	client, err := rpc.NewClient(statusHost, nil)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	st, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), st, time.Now())
	return nil
}

func printStatus(out io.Writer, st *rpc.StatusResponse, now time.Time) {
	fmt.Fprintf(out, "Controller: %s\n", st.Controller)
	fmt.Fprintf(out, "State:      %s\n", formatState(st.State))
	fmt.Fprintf(out, "Passes:     %d\n", st.Passes)
	if st.Fault != nil {
		where := ""
		if st.Fault.Sensor != "" {
			where = " while polling " + st.Fault.Sensor
		}
		fmt.Fprintf(out, "Fault:      %s%s (%s)\n", st.Fault.Error, where, formatUpdated(&st.Fault.At, now))
	}
	fmt.Fprintln(out)

	if len(st.Sensors) == 0 {
		fmt.Fprintln(out, "No sensors configured")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SENSOR\tNAME\tTEMPERATURE\tHUMIDITY\tBATTERY\tUPDATED")
	for _, s := range st.Sensors {
		r := s.Reading()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Sensor, s.Name,
			formatTemperature(r.Temperature), formatPercent(r.Humidity), formatPercent(r.Battery),
			formatUpdated(s.UpdatedAt, now))
	}
	_ = w.Flush()
}
