package bot

import (
	"fmt"
	"strings"

	"barberbot/internal/markdown"
	"barberbot/internal/model"
	"barberbot/internal/slots"
)

const clientListLimit = 20

const (
	msgMainMenu = "🏠 *BARBER SHOP*\n\n" +
		"Olá! Como posso ajudar?\n\n" +
		"*1* - 💇 Agendar horário\n" +
		"*2* - 📋 Ver serviços e preços\n" +
		"*3* - 📅 Meus agendamentos\n" +
		"*0* - Cancelar\n\n" +
		"Digite o número da opção ou escreva o que precisa!"

	msgManagerMenu = "👨‍💼 *MENU DO BARBEIRO*\n\n" +
		"*hoje* - Agendamentos de hoje\n" +
		"*amanhã* - Agendamentos de amanhã\n" +
		"*semana* - Agendamentos da semana\n" +
		"*agendamentos* - Todos os agendamentos\n" +
		"*finanças* - Resumo financeiro\n" +
		"*clientes* - Lista de clientes\n" +
		"*exportar* - Planilha do mês\n" +
		"*menu* - Este menu\n\n" +
		"Gerencie sua barbearia!"

	msgHelp = "📖 *COMANDOS DISPONÍVEIS*\n\n" +
		"• *menu* - Voltar ao menu principal\n" +
		"• *serviços* - Ver serviços disponíveis\n" +
		"• *agendar* - Iniciar agendamento\n" +
		"• *meus horários* - Ver seus agendamentos\n" +
		"• *cancelar* - Cancelar agendamento em andamento\n\n" +
		"💬 Para agendar, basta digitar *agendar* ou *1*"

	managerCommands = "📅 *COMANDOS:*\n" +
		"• *hoje* - Agendamentos de hoje\n" +
		"• *amanhã* - Agendamentos de amanhã\n" +
		"• *semana* - Agenda da semana\n" +
		"• *finanças* - Resumo financeiro\n" +
		"• *clientes* - Lista de clientes\n" +
		"• *menu* - Ver este menu\n\n" +
		"Gerencie sua barbearia diretamente pelo chat! 💈"

	msgInstalled = "✅ *Grupo de Gerenciamento Configurado!*\n\n" +
		"Este grupo agora é o painel de controle da sua barbearia.\n\n" + managerCommands

	msgNothingInProgress = "ℹ️ Nenhuma operação em andamento. Digite *menu* para ver as opções."
	msgBookingExpired    = "❌ Sessão expirada. Para agendar novamente, digite *agendar*."
	msgNoClient          = "📅 Você ainda não tem agendamentos. Para agendar, digite *agendar* ou *1*"
	msgNoAppointments    = "📅 Você não tem agendamentos marcados. Para agendar, digite *agendar* ou *1*"
	msgNoneFound         = "Nenhum agendamento encontrado."
	msgEmptyWeek         = "Nenhum agendamento esta semana."
)

// FormatWelcome is posted to the manager channel when the bot connects.
func FormatWelcome(botName string) string {
	if botName == "" {
		botName = "Barber Bot"
	}
	return fmt.Sprintf("👋 *Bem-vindo ao %s!*\n\nEste é o grupo de gerenciamento da sua barbearia.\n\n%s", botName, managerCommands)
}

func statusEmoji(s model.AppointmentStatus) string {
	if s == model.StatusConfirmed {
		return "✅"
	}
	return "⏳"
}

func formatServices(services []model.Service) string {
	var b strings.Builder
	b.WriteString("💈 *SERVIÇOS DISPONÍVEIS*\n\n")
	for _, s := range services {
		fmt.Fprintf(&b, "• *%s* - R$ %.2f\n", s.Name, s.Price)
		fmt.Fprintf(&b, "  ⏱️ %d minutos\n", s.Duration)
		if s.Description != "" {
			fmt.Fprintf(&b, "  📝 %s\n", s.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("Para agendar, digite *agendar* ou *1*")
	return b.String()
}

func formatMyAppointments(apts []model.Appointment) string {
	var b strings.Builder
	b.WriteString("📅 *SEUS AGENDAMENTOS*\n\n")
	for _, a := range apts {
		fmt.Fprintf(&b, "%s *%s*\n", statusEmoji(a.Status), a.ServiceName)
		fmt.Fprintf(&b, "📆 %s\n", slots.FormatDateTime(a.Date, a.Time))
		fmt.Fprintf(&b, "💰 R$ %.2f\n\n", a.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAppointmentList(title string, apts []model.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *%s*\n\n", title)
	if len(apts) == 0 {
		b.WriteString(msgNoneFound)
		return b.String()
	}
	for _, a := range apts {
		short := a.ShortID()
		fmt.Fprintf(&b, "%s *%s*\n", statusEmoji(a.Status), a.ServiceName)
		fmt.Fprintf(&b, "👤 %s\n", markdown.Escape(a.ClientName))
		fmt.Fprintf(&b, "📆 %s\n", slots.FormatDateTime(a.Date, a.Time))
		fmt.Fprintf(&b, "💰 R$ %.2f\n", a.Price)
		fmt.Fprintf(&b, "📝 ID: `%s`\n", short)
		fmt.Fprintf(&b, "Comandos: confirmar %s | cancelar %s\n\n", short, short)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatWeek groups apts under each of dates; apts must be sorted by date
// and time.
func formatWeek(dates []string, apts []model.Appointment) string {
	byDate := make(map[string][]model.Appointment, len(dates))
	for _, a := range apts {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	var b strings.Builder
	b.WriteString("📅 *AGENDA DA SEMANA*\n\n")
	empty := true
	for _, d := range dates {
		day := byDate[d]
		if len(day) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(&b, "📆 *%s*\n", slots.FormatDate(d))
		for _, a := range day {
			fmt.Fprintf(&b, "%s %s - %s (%s)\n", statusEmoji(a.Status), a.Time, markdown.Escape(a.ClientName), a.ServiceName)
		}
		b.WriteString("\n")
	}
	if empty {
		b.WriteString(msgEmptyWeek)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFinanceSummary(s model.Summary) string {
	return fmt.Sprintf("💰 *RESUMO FINANCEIRO*\n\n*Este Mês:*\n"+
		"💵 Entradas: R$ %.2f\n"+
		"💸 Saídas: R$ %.2f\n"+
		"📊 Saldo: R$ %.2f\n\n"+
		"Para ver o fluxo completo, digite *extrato*", s.Income, s.Expense, s.Balance)
}

func formatClients(clients []model.Client) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 *CLIENTES CADASTRADOS* (%d)\n\n", len(clients))
	for i, c := range clients {
		if i == clientListLimit {
			break
		}
		fmt.Fprintf(&b, "• %s (%s)\n", markdown.Escape(c.Name), c.Phone)
		fmt.Fprintf(&b, "  Visitas: %d\n\n", c.TotalVisits)
	}
	if len(clients) > clientListLimit {
		fmt.Fprintf(&b, "... e mais %d clientes", len(clients)-clientListLimit)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatNotFound(short string) string {
	return "❌ Agendamento não encontrado: " + markdown.Escape(short)
}

func formatCustomerConfirmed(a *model.Appointment) string {
	return fmt.Sprintf("✅ *Confirmação de Agendamento*\n\n"+
		"Seu horário foi confirmado!\n\n"+
		"📅 %s\n💇 %s\n💰 R$ %.2f\n\n"+
		"Nos vemos em breve! 💈", slots.FormatDateTime(a.Date, a.Time), a.ServiceName, a.Price)
}

func formatCustomerCancelled(a *model.Appointment) string {
	return fmt.Sprintf("❌ *Agendamento Cancelado*\n\n"+
		"Seu horário foi cancelado.\n\n"+
		"📅 %s\n💇 %s\n\n"+
		"Para remarcar, digite *agendar*!", slots.FormatDateTime(a.Date, a.Time), a.ServiceName)
}

func formatManagerConfirmed(a *model.Appointment) string {
	return fmt.Sprintf("✅ Agendamento confirmado: %s - %s", markdown.Escape(a.ClientName), slots.FormatDateTime(a.Date, a.Time))
}

func formatManagerCancelled(a *model.Appointment) string {
	return "❌ Agendamento cancelado: " + markdown.Escape(a.ClientName)
}

func formatAlreadyDecided(a *model.Appointment) string {
	return fmt.Sprintf("⚠️ Agendamento já %s: %s - %s",
		statusLabel(a.Status), markdown.Escape(a.ClientName), slots.FormatDateTime(a.Date, a.Time))
}

func statusLabel(s model.AppointmentStatus) string {
	switch s {
	case model.StatusConfirmed:
		return "confirmado"
	case model.StatusCancelled:
		return "cancelado"
	case model.StatusCompleted:
		return "concluído"
	case model.StatusNoShow:
		return "marcado como falta"
	}
	return "pendente"
}
