// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

// HandleDevice prints this machine's device record, creating the device ID
// on first use.
func HandleDevice(app *App, args Args) error {
	rec, err := app.Device.Metadata()
	if err != nil {
		return NewCommandError("device", "identify", "could not resolve device", err)
	}
	if args.JSON {
		return NewJSONResponse("device", rec).Print()
	}

	p := printer{w: app.Out, quiet: args.Quiet}
	p.field("Device ID", rec.DeviceID)
	p.field("Hostname", rec.Hostname)
	p.field("Platform", rec.Platform)
	p.field("Runtime", rec.RuntimeVersion)
	return nil
}
