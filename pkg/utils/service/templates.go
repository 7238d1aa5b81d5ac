package service

const systemdUnitTemplate = `[Unit]
Description=amped battery telemetry daemon
After=multi-user.target upower.service

[Service]
Type=simple
ExecStart={{ .ExePath }} daemon --config {{ .ConfigPath }} --daemon-socket {{ .SocketPath }}{{ if .AllowNonRoot }} --always-allow-non-root-access{{ end }}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>io.github.hootzen.amped</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{ .ExePath }}</string>
		<string>daemon</string>
		<string>--config</string>
		<string>{{ .ConfigPath }}</string>
		<string>--daemon-socket</string>
		<string>{{ .SocketPath }}</string>
		{{- if .AllowNonRoot }}
		<string>--always-allow-non-root-access</string>
		{{- end }}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>/tmp/amped.log</string>
	<key>StandardErrorPath</key>
	<string>/tmp/amped.log</string>
</dict>
</plist>
`
