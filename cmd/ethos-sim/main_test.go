package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/ethos/internal/simulate"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCommands(t *testing.T) {
	Convey("Given the root command", t, func() {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)

		Convey("When generate is run", func() {
			path := filepath.Join(t.TempDir(), "events.json")
			root.SetArgs([]string{"generate", "--characters", "3", "--steps", "4", "--seed", "9", "-o", path})
			err := root.Execute()

			Convey("Then the workload is written as a JSON array", func() {
				So(err, ShouldBeNil)
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				var events []simulate.Event
				So(json.Unmarshal(data, &events), ShouldBeNil)
				So(events, ShouldHaveLength, 12)
				So(out.String(), ShouldContainSubstring, "wrote 12 events for 3 characters")
			})
		})

		Convey("When run is given an invalid workload", func() {
			root.SetArgs([]string{"run", "--steps", "0"})
			err := root.Execute()

			Convey("Then it fails before contacting the service", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "steps must be positive")
			})
		})
	})
}
