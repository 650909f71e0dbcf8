package handlers

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"modbot/bot"
	"modbot/model"
)

// SystemInfoHandler answers /modstatus with host stats and the scheduler's
// current workload.
func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	var dbSize int64
	if info, err := os.Stat(b.GetConfig().DatabasePath); err == nil {
		dbSize = info.Size() / 1024
	}

	cpuUsage := 0.0
	if len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}

	pendingByKind := make([]string, 0, 3)
	for _, kind := range []model.ActionKind{model.ActionUnmute, model.ActionUnban, model.ActionRemoveRole} {
		if actions, err := b.Store.ListByKind(kind); err == nil {
			pendingByKind = append(pendingByKind, fmt.Sprintf("%s: %d", kind, len(actions)))
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "System status",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", cpuUsage), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024), Inline: true},
			{Name: "🗃️ Database", Value: fmt.Sprintf("%d KB", dbSize), Inline: true},
			{Name: "⏱️ WS latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "🌍 Guilds", Value: fmt.Sprintf("%d", len(s.State.Guilds)), Inline: true},
			{Name: "⏳ Armed reversals", Value: fmt.Sprintf("%d", b.Scheduler.PendingCount()), Inline: true},
			{Name: "📋 Stored by kind", Value: fmt.Sprintf("%v", pendingByKind), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("status at %s", time.Now().Format("15:04")),
		},
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}
