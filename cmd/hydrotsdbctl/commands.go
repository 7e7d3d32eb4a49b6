package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	tsdb "github.com/amacd31/hydrotsdb"
	"github.com/amacd31/hydrotsdb/internal/ingest"
	"github.com/spf13/cobra"
)

func newCreateDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-db <path>",
		Short: "Create a new database root",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return tsdb.CreateDB(args[0])
		},
	}
	return cmd
}

func newRegisterTimeseriesCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "register-timeseries <db> <name>",
		Short: "Register a timeseries, measurand, source, or attribute name",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tsdb.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			name := args[1]
			switch kind {
			case "timeseries":
				return db.RegisterTimeseries(name)
			case "measurand":
				return db.RegisterMeasurand(name)
			case "source":
				return db.RegisterSource(name)
			case "attribute":
				return db.RegisterAttribute(name)
			default:
				return fmt.Errorf("unknown --kind %q (want timeseries, measurand, source, or attribute)", kind)
			}
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "timeseries", "entity kind: timeseries, measurand, source, or attribute")
	return cmd
}

func newCreateInstanceCommand() *cobra.Command {
	var frequency, measurand, source, metadata string

	cmd := &cobra.Command{
		Use:   "create-instance <db> <timeseries-id>",
		Short: "Create an instance binding a timeseries to a frequency, measurand, and source",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tsdb.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			handle, err := db.CreateInstance(args[1], frequency, metadata, measurand, source)
			if err != nil {
				return err
			}
			fmt.Println(handle)
			return nil
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", "D", "frequency label (D, H, M, MS, IRR, or Nmin)")
	cmd.Flags().StringVar(&measurand, "measurand", "", "measurand name (required)")
	cmd.Flags().StringVar(&source, "source", "", "source name (required)")
	cmd.Flags().StringVar(&metadata, "metadata", "", "initial instance metadata")
	cmd.MarkFlagRequired("measurand")
	cmd.MarkFlagRequired("source")
	return cmd
}

func newWriteCommand() *cobra.Command {
	var frequency, measurand, source, file string

	cmd := &cobra.Command{
		Use:   "write <db> <timeseries-id>",
		Short: "Write a CSV file of timestamp,value rows into an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tsdb.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			points, err := readCSVPoints(file)
			if err != nil {
				return err
			}

			res, err := db.Write(args[1], frequency, measurand, source, points)
			if err != nil {
				return err
			}
			fmt.Printf("created=%d updated=%d\n", res.Created, res.Updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", "D", "frequency label")
	cmd.Flags().StringVar(&measurand, "measurand", "", "measurand name (required)")
	cmd.Flags().StringVar(&source, "source", "", "source name (required)")
	cmd.Flags().StringVar(&file, "file", "", "CSV file of timestamp,value rows (required)")
	cmd.MarkFlagRequired("measurand")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newReadCommand() *cobra.Command {
	var frequency, measurand, source string

	cmd := &cobra.Command{
		Use:   "read <db> <timeseries-id>",
		Short: "Print an instance's current series as CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tsdb.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			points, err := db.Read(args[1], frequency, measurand, source)
			if err != nil {
				return err
			}
			return writeCSVPoints(os.Stdout, points)
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", "D", "frequency label")
	cmd.Flags().StringVar(&measurand, "measurand", "", "measurand name (required)")
	cmd.Flags().StringVar(&source, "source", "", "source name (required)")
	cmd.MarkFlagRequired("measurand")
	cmd.MarkFlagRequired("source")
	return cmd
}

func newReadAsOfCommand() *cobra.Command {
	var frequency, measurand, source, at string

	cmd := &cobra.Command{
		Use:   "read-as-of <db> <timeseries-id>",
		Short: "Print an instance's series as it stood at a past time",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tsdb.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			t, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at time %q: %w", at, err)
			}

			points, err := db.ReadAsOf(args[1], frequency, measurand, source, t.Unix())
			if err != nil {
				return err
			}
			return writeCSVPoints(os.Stdout, points)
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", "D", "frequency label")
	cmd.Flags().StringVar(&measurand, "measurand", "", "measurand name (required)")
	cmd.Flags().StringVar(&source, "source", "", "source name (required)")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 timestamp (required)")
	cmd.MarkFlagRequired("measurand")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("at")
	return cmd
}

func newListCommand() *cobra.Command {
	var timeseriesID, measurand, source string

	cmd := &cobra.Command{
		Use:   "list <db> {timeseries|measurands|sources|instances}",
		Short: "List catalog entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := tsdb.OpenDB(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[1] {
			case "timeseries":
				names, err := db.ListTimeseries()
				if err != nil {
					return err
				}
				printLines(names)
			case "measurands":
				names, err := db.ListMeasurands()
				if err != nil {
					return err
				}
				printLines(names)
			case "sources":
				names, err := db.ListSources()
				if err != nil {
					return err
				}
				printLines(names)
			case "instances":
				instances, err := db.ListInstances(tsdb.InstanceFilter{
					TimeseriesID: timeseriesID,
					Measurand:    measurand,
					Source:       source,
				})
				if err != nil {
					return err
				}
				for _, inst := range instances {
					fmt.Printf("%s\t%s\t%s\t%s\t%s\n", inst.Handle, inst.TimeseriesID, inst.Frequency, inst.Measurand, inst.Source)
				}
			default:
				return fmt.Errorf("unknown list target %q (want timeseries, measurands, sources, or instances)", args[1])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&timeseriesID, "timeseries-id", "", "filter instances by timeseries id")
	cmd.Flags().StringVar(&measurand, "measurand", "", "filter instances by measurand")
	cmd.Flags().StringVar(&source, "source", "", "filter instances by source")
	return cmd
}

func printLines(names []string) {
	for _, n := range names {
		fmt.Println(n)
	}
}

func readCSVPoints(path string) ([]tsdb.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ingest.CSV(f)
}

func writeCSVPoints(w *os.File, points []tsdb.Point) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	for _, p := range points {
		record := []string{
			time.Unix(p.Timestamp, 0).UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}
