package home

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/dustin/go-humanize"
	"github.com/leeineian/biochemie/proc"
	"github.com/leeineian/biochemie/sys"
)

const (
	InfoEmbedColor   = 0x3F3368
	InfoFooterFormat = "Created by %s"
	notAvailable     = "N/A"
	unknownReading   = "?"

	mib = 1 << 20
	gib = 1 << 30
)

// Group is one titled block of key/value lines.
type Group struct {
	Name   string
	Lines  []string
	Inline bool
}

// Field renders the group as an embed field with a yml code block.
func (g Group) Field() discord.EmbedField {
	inline := g.Inline
	return discord.EmbedField{
		Name:   g.Name,
		Value:  "```yml\n" + strings.Join(g.Lines, "\n") + "```",
		Inline: &inline,
	}
}

// ClientSnapshot is what the client information embed shows.
type ClientSnapshot struct {
	Ready      bool
	Uptime     time.Duration
	Latency    time.Duration
	RSSBytes   uint64
	Guilds     int
	Members    int
	Channels   int
	Extensions int
	Commands   sys.CommandCounts
	Versions   sys.VersionInfo
}

// EmbedMeta carries the parts shared by every information embed.
type EmbedMeta struct {
	Timestamp  time.Time
	OwnerName  string
	OwnerIcon  string
	Repository string
}

func ClientGroups(s ClientSnapshot) []Group {
	uptime := notAvailable
	if s.Ready {
		uptime = sys.FormatTimedelta(s.Uptime)
	}

	return []Group{
		{
			Name: "Information",
			Lines: []string{
				"Uptime: " + uptime,
				fmt.Sprintf("Latency: %d ms", roundMillis(s.Latency)),
				fmt.Sprintf("RAM in use: %.1f MiB", float64(s.RSSBytes)/mib),
			},
		},
		{
			Name: "Bot Stats",
			Lines: []string{
				fmt.Sprintf("Guilds: %d", s.Guilds),
				fmt.Sprintf("Members: %d", s.Members),
				fmt.Sprintf("Channels: %d", s.Channels),
			},
		},
		{
			Name: "Commands",
			Lines: []string{
				fmt.Sprintf("Command Extensions: %d", s.Extensions),
				fmt.Sprintf("Prefix Commands: %d", s.Commands.Prefix),
				fmt.Sprintf("Slash Groups: %d", s.Commands.SlashGroups),
				fmt.Sprintf("Slash Commands: %d", s.Commands.SlashCommands),
				fmt.Sprintf("Total Commands: %d", s.Commands.Total()),
			},
			Inline: true,
		},
		{
			Name: "Version Info",
			Lines: []string{
				sys.ProjectName + ": " + s.Versions.Bot,
				"Go: " + s.Versions.Go,
				"Disgo: " + s.Versions.Library,
			},
		},
	}
}

func SystemGroups(h proc.HostSnapshot) []Group {
	read, write := unknownReading, unknownReading
	if h.DiskRead != nil {
		read = fmt.Sprintf("%.1f", float64(*h.DiskRead)/gib)
	}
	if h.DiskWrite != nil {
		write = fmt.Sprintf("%.1f", float64(*h.DiskWrite)/gib)
	}

	diskPercent := 0.0
	if h.DiskTotal > 0 {
		diskPercent = float64(h.DiskUsed) / float64(h.DiskTotal) * 100
	}

	cpuName := h.CPUName
	if cpuName == "" {
		cpuName = unknownReading
	}

	sent, recv := unknownReading, unknownReading
	packetsSent, packetsRecv := unknownReading, unknownReading
	if h.NetworkAvailable {
		sent = fmt.Sprintf("%.1f", float64(h.NetBytesSent)/gib)
		recv = fmt.Sprintf("%.1f", float64(h.NetBytesRecv)/gib)
		packetsSent = humanize.Comma(int64(h.NetPacketsSent))
		packetsRecv = humanize.Comma(int64(h.NetPacketsRecv))
	}

	return []Group{
		{
			Name: "System",
			Lines: []string{
				"OS: " + h.OS,
				"Machine: " + h.Machine,
				"Uptime: " + sys.FormatTimedelta(h.Uptime),
			},
		},
		{
			Name: "CPU",
			Lines: []string{
				"Name: " + cpuName,
				fmt.Sprintf("Physical Cores: %d/%d", h.PhysicalCores, h.LogicalCores),
				fmt.Sprintf("Usage: %.1f%%", h.CPUPercent),
			},
		},
		{
			Name: "Memory",
			Lines: []string{
				fmt.Sprintf("Total Memory: %.1f GiB", float64(h.MemTotal)/gib),
				fmt.Sprintf("Used Memory: %.1f GiB (%.1f%%)", float64(h.MemUsed)/gib, h.MemPercent),
				fmt.Sprintf("Free Memory: %.1f GiB", float64(h.MemFree)/gib),
			},
			Inline: true,
		},
		{
			Name: "Disk",
			Lines: []string{
				fmt.Sprintf("Size: %.1f GiB", float64(h.DiskTotal)/gib),
				fmt.Sprintf("Used: %.1f GiB (%.1f%%)", float64(h.DiskUsed)/gib, diskPercent),
				"",
				fmt.Sprintf("Read: %s GiB", read),
				fmt.Sprintf("Write: %s GiB", write),
			},
			Inline: true,
		},
		{
			Name: "Network",
			Lines: []string{
				fmt.Sprintf("Bytes Sent: %s GiB", sent),
				fmt.Sprintf("Bytes Received: %s GiB", recv),
				"Packets Sent: " + packetsSent,
				"Packets Received: " + packetsRecv,
			},
		},
	}
}

// BuildEmbed assembles an information embed from groups.
func BuildEmbed(title, description string, groups []Group, meta EmbedMeta) discord.Embed {
	ts := meta.Timestamp
	embed := discord.Embed{
		Title:       title,
		Description: description,
		Color:       InfoEmbedColor,
		Timestamp:   &ts,
	}
	for _, g := range groups {
		embed.Fields = append(embed.Fields, g.Field())
	}
	if meta.OwnerName != "" {
		embed.Footer = &discord.EmbedFooter{
			Text:    fmt.Sprintf(InfoFooterFormat, meta.OwnerName),
			IconURL: meta.OwnerIcon,
		}
	}
	return embed
}

func ClientEmbed(s ClientSnapshot, meta EmbedMeta) discord.Embed {
	description := ""
	if meta.Repository != "" {
		description = fmt.Sprintf("[Source Code](%s)", meta.Repository)
	}
	return BuildEmbed("Bot Information", description, ClientGroups(s), meta)
}

func SystemEmbed(h proc.HostSnapshot, meta EmbedMeta) discord.Embed {
	return BuildEmbed("System Information", "", SystemGroups(h), meta)
}
