/*
provisioner.go - Year-start entitlement provisioning

PURPOSE:
  Periodically makes sure every employee has an entitlement row for the
  current year, so administrators see the defaults in listings before
  anyone has filed a request.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses the same get-or-create as the balance calculator, so it is
    idempotent and safe to run next to live traffic
  - Never touches carried_forward_days

USAGE:
  p := leave.NewProvisioner(svc, time.Hour)
  p.Start()
  // ... later
  p.Stop()
*/
package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Provisioner struct {
	Service       *Service
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewProvisioner(svc *Service, interval time.Duration) *Provisioner {
	return &Provisioner{
		Service:       svc,
		CheckInterval: interval,
		stop:          make(chan struct{}),
	}
}

// Start begins the provisioner. A non-positive interval disables it.
func (p *Provisioner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := p.Service.Logger.Named("provisioner")
	if p.CheckInterval <= 0 {
		log.Info("disabled, not starting")
		return
	}
	if p.ticker != nil {
		return
	}

	p.ticker = time.NewTicker(p.CheckInterval)
	p.stop = make(chan struct{})
	p.wg.Add(1)
	go p.run()

	log.Info("started", zap.Duration("interval", p.CheckInterval))
}

// Stop stops the provisioner and waits for an in-flight run.
func (p *Provisioner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		p.ticker.Stop()
		close(p.stop)
		p.wg.Wait()
		p.ticker = nil
		p.Service.Logger.Named("provisioner").Info("stopped")
	}
}

func (p *Provisioner) run() {
	defer p.wg.Done()

	p.tick()
	for {
		select {
		case <-p.ticker.C:
			p.tick()
		case <-p.stop:
			return
		}
	}
}

func (p *Provisioner) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.CheckInterval)
	defer cancel()

	year := p.Service.currentYear()
	created, err := p.ProvisionYear(ctx, year)
	log := p.Service.Logger.Named("provisioner")
	if err != nil {
		log.Error("provisioning failed", zap.Int("year", year), zap.Error(err))
		return
	}
	log.Debug("provisioning done", zap.Int("year", year), zap.Int("created", created))
}

// ProvisionYear ensures every employee has an entitlement for year and
// returns how many were created.
func (p *Provisioner) ProvisionYear(ctx context.Context, year int) (int, error) {
	svc := p.Service
	employees, err := svc.Store.ListUsers(ctx, RoleEmployee)
	if err != nil {
		return 0, fmt.Errorf("list employees: %w", err)
	}

	created := 0
	for _, emp := range employees {
		err := svc.Store.WithTx(ctx, func(tx Tx) error {
			existing, err := tx.GetEntitlement(ctx, emp.ID, year)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}
			if _, err := svc.Entitlements.GetOrCreate(ctx, tx, emp.ID, year); err != nil {
				return err
			}
			created++
			return nil
		})
		if err != nil {
			return created, fmt.Errorf("provision %s: %w", emp.ID, err)
		}
	}
	return created, nil
}
