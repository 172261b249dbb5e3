package booking

import (
	"fmt"
	"strings"

	"barberbot/internal/markdown"
	"barberbot/internal/model"
	"barberbot/internal/slots"
)

const (
	msgCanceled       = "❌ Agendamento cancelado. Quando quiser agendar, é só mandar *menu*!"
	msgInvalidService = "❌ Opção inválida. Digite o número do serviço desejado:"
	msgInvalidDate    = "❌ Opção inválida. Digite o número da data:"
	msgInvalidTime    = "❌ Opção inválida. Digite o número do horário:"
	msgNoSlots        = "❌ Não há horários disponíveis para esta data. Por favor, escolha outra data."
	msgSlotTaken      = "⚠️ Esse horário acabou de ser reservado. Escolha outro:"
	msgAskName        = "👤 *QUAL É O SEU NOME?*\n\nPor favor, digite seu nome completo:"
	msgInvalidName    = "❌ Nome inválido. Por favor, digite seu nome completo:"
	msgConfirmHelp    = "❌ Digite *confirmar* para confirmar ou *cancelar* para cancelar."
	msgNoServices     = "😕 Nenhum serviço disponível no momento. Tente novamente mais tarde."
)

// FormatServiceMenu lists services as numbered options.
func FormatServiceMenu(services []model.Service) string {
	var b strings.Builder
	b.WriteString("💇 *SERVIÇOS*\n\n")
	for i, s := range services {
		fmt.Fprintf(&b, "*%d* - %s (R$ %.2f)\n", i+1, s.Name, s.Price)
	}
	b.WriteString("\n*0* - Cancelar")
	return b.String()
}

// FormatDateMenu lists business days as numbered options.
func FormatDateMenu(dates []string) string {
	var b strings.Builder
	b.WriteString("📅 *SELECIONE A DATA*\n\n")
	for i, d := range dates {
		fmt.Fprintf(&b, "*%d* - %s\n", i+1, slots.FormatShortDate(d))
	}
	b.WriteString("\n*0* - Cancelar")
	return b.String()
}

// FormatTimeMenu lists free slots for the chosen date and service.
func FormatTimeMenu(date string, service *model.Service, times []string) string {
	var b strings.Builder
	b.WriteString("🕐 *SELECIONE O HORÁRIO*\n\n")
	fmt.Fprintf(&b, "📅 %s\n", slots.FormatDate(date))
	fmt.Fprintf(&b, "💇 %s (%d min)\n\n", service.Name, service.Duration)
	for i, t := range times {
		fmt.Fprintf(&b, "*%d* - %s\n", i+1, t)
	}
	b.WriteString("\n*data N* - Trocar a data\n*0* - Cancelar")
	return b.String()
}

// FormatConfirmation summarizes the booking before commit.
func FormatConfirmation(service *model.Service, date, start, end, clientName string) string {
	var b strings.Builder
	b.WriteString("✅ *CONFIRMAR AGENDAMENTO*\n\n")
	fmt.Fprintf(&b, "💇 *Serviço:* %s\n", service.Name)
	fmt.Fprintf(&b, "📅 *Data:* %s\n", slots.FormatDate(date))
	fmt.Fprintf(&b, "🕐 *Horário:* %s às %s\n", start, end)
	fmt.Fprintf(&b, "💰 *Valor:* R$ %.2f\n", service.Price)
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n\n", markdown.Escape(clientName))
	b.WriteString("Digite *confirmar* para confirmar ou *cancelar* para cancelar.")
	return b.String()
}

// FormatBooked is sent to the customer after commit.
func FormatBooked(a *model.Appointment) string {
	var b strings.Builder
	b.WriteString("🎉 *AGENDAMENTO REALIZADO!*\n\n")
	b.WriteString("Seu horário foi marcado com sucesso!\n\n")
	fmt.Fprintf(&b, "📅 %s\n", slots.FormatDateTime(a.Date, a.Time))
	fmt.Fprintf(&b, "💇 %s\n", a.ServiceName)
	fmt.Fprintf(&b, "💰 R$ %.2f\n\n", a.Price)
	b.WriteString("O barbeiro confirmará seu agendamento em breve.\n")
	b.WriteString("Obrigado! 💈")
	return b.String()
}

// FormatManagerNotice announces a new booking on the manager channel.
func FormatManagerNotice(a *model.Appointment) string {
	return fmt.Sprintf("🔔 *NOVO AGENDAMENTO*\n\n👤 %s\n💇 %s\n📅 %s\n💰 R$ %.2f\n\nPara confirmar: confirmar %s",
		markdown.Escape(a.ClientName),
		a.ServiceName,
		slots.FormatDateTime(a.Date, a.Time),
		a.Price,
		a.ShortID(),
	)
}
