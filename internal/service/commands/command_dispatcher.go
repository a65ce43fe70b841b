package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

// ErrUnknownSender indicates the phone number belongs to no representative.
var ErrUnknownSender = errors.New("sender is not a registered representative")

const dateFormat = "02/01/2006"

// StateReader is the read side of the consignment store used to answer
// representatives.
type StateReader interface {
	RepresentativeByPhone(phone string) (models.Representative, bool)
	Summary(repID string) (models.MaletaSummary, error)
	Maleta(repID string) (models.Maleta, error)
	Cycles(repID string) []models.ConsignmentCycle
}

// Dispatcher answers the commands a representative sends over WhatsApp.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	state  StateReader
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs a command dispatcher.
func NewService(state StateReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		state:  state,
		logger: logger,
		now:    time.Now,
	}
}

var helpReply = models.AutomationReply{
	Title:   "Comandos disponíveis",
	Message: "/resumo - vendas e comissão\n/maleta - peças com você\n/ciclo - prazo do acerto\n/ajuda - esta mensagem",
}

// HandleCommand resolves the sender and builds the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Any("args", cmd.Args))

	if cmd.Type == models.CommandHelp || cmd.Type == models.CommandUnknown {
		return formatReply(helpReply), nil
	}

	rep, ok := s.state.RepresentativeByPhone(sender)
	if !ok {
		return "", ErrUnknownSender
	}

	switch cmd.Type {
	case models.CommandSummary:
		sum, err := s.state.Summary(rep.ID)
		if err != nil {
			return "", err
		}
		return FormatSummary(sum), nil
	case models.CommandMaleta:
		maleta, err := s.state.Maleta(rep.ID)
		if err != nil {
			return "", err
		}
		return FormatMaleta(rep.Name, maleta), nil
	case models.CommandCycle:
		return s.formatCycle(rep), nil
	default:
		return formatReply(helpReply), nil
	}
}

// FormatSummary renders a representative's summary in Portuguese.
func FormatSummary(sum models.MaletaSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👜 Resumo de %s (%s)", sum.Name, sum.Status)
	fmt.Fprintf(&b, "\nEntregue: %s", models.FormatBRL(sum.TotalDelivered))
	fmt.Fprintf(&b, "\nVendido: %s", models.FormatBRL(sum.SoldValue))
	fmt.Fprintf(&b, "\nComissão (%s%%): %s", sum.CommissionRate.Shift(2).StringFixed(0), models.FormatBRL(sum.CommissionValue))
	if !sum.Additional.IsZero() {
		fmt.Fprintf(&b, "\nAdicional: %s", models.FormatBRL(sum.Additional))
	}
	fmt.Fprintf(&b, "\nLíquido: %s", models.FormatBRL(sum.NetProfit))
	return b.String()
}

// FormatMaleta lists the pieces a representative currently holds.
func FormatMaleta(name string, maleta models.Maleta) string {
	if len(maleta.Items) == 0 {
		return fmt.Sprintf("👜 A maleta de %s está vazia.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👜 Maleta de %s", name)
	for _, item := range maleta.Items {
		fmt.Fprintf(&b, "\n• %dx %s (%s)", item.Quantity, item.Name, models.FormatBRL(item.Value))
	}
	fmt.Fprintf(&b, "\nTotal: %d peças, %s", maleta.TotalQuantity, models.FormatBRL(maleta.TotalValue))
	return b.String()
}

func (s *Service) formatCycle(rep models.Representative) string {
	var current *models.ConsignmentCycle
	cycles := s.state.Cycles(rep.ID)
	for i := range cycles {
		if cycles[i].Accepting() {
			current = &cycles[i]
			break
		}
	}
	if current == nil {
		return fmt.Sprintf("%s, você não tem ciclo em aberto.", rep.Name)
	}

	days := int(current.DueDate.Sub(s.now()).Hours() / 24)
	if current.Status == models.CycleOverdue || days < 0 {
		return fmt.Sprintf("⚠️ %s, seu acerto venceu em %s.", rep.Name, current.DueDate.Format(dateFormat))
	}
	return fmt.Sprintf("%s, seu acerto vence em %s (%d dias).", rep.Name, current.DueDate.Format(dateFormat), days)
}

func formatReply(r models.AutomationReply) string {
	return fmt.Sprintf("%s\n%s", r.Title, r.Message)
}
