// SPDX-License-Identifier: AGPL-3.0-or-later

/*

Stagecraft - Stagecraft is a Go-based CLI that orchestrates local-first development and scalable single-host to multi-host deployments for multi-service applications powered by Docker Compose.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fleetctl/internal/orchestrator/inventory"
	"fleetctl/internal/orchestrator/knobs"
	"fleetctl/internal/orchestrator/loop"
	"fleetctl/internal/orchestrator/persist"
	"fleetctl/internal/orchestrator/platform"
	"fleetctl/internal/orchestrator/stage"
	"fleetctl/internal/orchestrator/step"
	"fleetctl/pkg/config"
	"fleetctl/pkg/logging"
)

// Feature: CLI_STRATEGY_COMMANDS
// Spec: spec.md section 6

// addKnobFlags registers the knob flags common to every strategy kind's
// create sub-command (spec.md section 6).
func addKnobFlags(cmd *cobra.Command) {
	cmd.Flags().String("controller-apply-type", string(knobs.ApplySerial), "controller apply-type: serial|parallel|ignore")
	cmd.Flags().String("storage-apply-type", string(knobs.ApplySerial), "storage apply-type: serial|parallel|ignore")
	cmd.Flags().String("worker-apply-type", string(knobs.ApplyParallel), "worker apply-type: serial|parallel|ignore")
	cmd.Flags().Int("max-parallel-worker-hosts", 10, "max hosts per parallel worker wave")
	cmd.Flags().String("instance-action", string(knobs.InstanceActionMigrate), "instance-action: migrate|stop-start")
	cmd.Flags().String("alarm-restrictions", string(knobs.AlarmRestrictionStrict), "alarm-restrictions: strict|relaxed")
	cmd.Flags().StringSlice("ignore-alarms", nil, "alarm IDs to ignore regardless of restriction")
	cmd.Flags().String("fleet", "fleet.yaml", "path to the fleet snapshot file")
	cmd.Flags().String("from-file", "", "path to a YAML strategy request file; overrides any flag it sets")
}

// addApplyActionFlags registers the flags shared by apply/abort.
func addApplyActionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("stage-id", -1, "stage index to resume/abort at (-1 for current)")
}

func knobsFromFlags(cmd *cobra.Command) (knobs.Knobs, error) {
	controllerApply, _ := cmd.Flags().GetString("controller-apply-type")
	storageApply, _ := cmd.Flags().GetString("storage-apply-type")
	workerApply, _ := cmd.Flags().GetString("worker-apply-type")
	maxParallel, _ := cmd.Flags().GetInt("max-parallel-worker-hosts")
	instanceAction, _ := cmd.Flags().GetString("instance-action")
	alarmRestriction, _ := cmd.Flags().GetString("alarm-restrictions")
	ignoreAlarms, _ := cmd.Flags().GetStringSlice("ignore-alarms")

	if fromFile, _ := cmd.Flags().GetString("from-file"); fromFile != "" {
		req, err := config.LoadStrategyRequest(fromFile)
		if err != nil {
			return knobs.Knobs{}, err
		}
		if req.ControllerApplyType != "" {
			controllerApply = req.ControllerApplyType
		}
		if req.StorageApplyType != "" {
			storageApply = req.StorageApplyType
		}
		if req.WorkerApplyType != "" {
			workerApply = req.WorkerApplyType
		}
		if req.MaxParallelWorkerHosts != 0 {
			maxParallel = req.MaxParallelWorkerHosts
		}
		if req.InstanceAction != "" {
			instanceAction = req.InstanceAction
		}
		if req.AlarmRestrictions != "" {
			alarmRestriction = req.AlarmRestrictions
		}
		if len(req.IgnoreAlarms) > 0 {
			ignoreAlarms = req.IgnoreAlarms
		}
	}

	k := knobs.Knobs{
		Controller:       knobs.PersonalityKnobs{Apply: knobs.ApplyType(controllerApply), InstanceAction: knobs.InstanceAction(instanceAction)},
		Storage:          knobs.PersonalityKnobs{Apply: knobs.ApplyType(storageApply), InstanceAction: knobs.InstanceAction(instanceAction)},
		Worker:           knobs.PersonalityKnobs{Apply: knobs.ApplyType(workerApply), MaxParallelWorkerHosts: maxParallel, InstanceAction: knobs.InstanceAction(instanceAction)},
		AlarmRestriction: knobs.AlarmRestriction(alarmRestriction),
		IgnoreAlarms:     ignoreAlarms,
	}
	if err := k.Validate(); err != nil {
		return knobs.Knobs{}, fmt.Errorf("invalid knobs: %w", err)
	}
	return k, nil
}

func loadTables(cmd *cobra.Command) (*inventory.Tables, error) {
	fleetPath, _ := cmd.Flags().GetString("fleet")
	tables, err := inventory.LoadSnapshot(fleetPath)
	if err != nil {
		return nil, fmt.Errorf("loading fleet snapshot: %w", err)
	}
	return tables, nil
}

func openStrategyStore() persist.Store {
	return persist.NewDefaultFileStore()
}

// runStrategyCreate persists a freshly built strategy of kind, failing if
// one already exists (spec.md section 3's "at most one active strategy of
// each kind" invariant).
func runStrategyCreate(cmd *cobra.Command, kind string, build func(tables *inventory.Tables, k knobs.Knobs) (*stage.Strategy, error)) error {
	ctx := strategyContext(cmd)
	store := openStrategyStore()

	tables, err := loadTables(cmd)
	if err != nil {
		return err
	}
	if _, err := store.Load(ctx, kind, tables); err == nil {
		return fmt.Errorf("a %s strategy already exists; delete it first", kind)
	} else if !errors.Is(err, persist.ErrNotFound) {
		return fmt.Errorf("checking for existing strategy: %w", err)
	}

	k, err := knobsFromFlags(cmd)
	if err != nil {
		return err
	}

	strategy, err := build(tables, k)
	if err != nil {
		return fmt.Errorf("planning %s strategy: %w", kind, err)
	}
	if err := store.Save(ctx, strategy); err != nil {
		return fmt.Errorf("saving strategy: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s strategy created with %d stages, status=%s\n", kind, len(strategy.Stages), strategy.Status)
	return nil
}

func runStrategyDelete(cmd *cobra.Command, kind string) error {
	ctx := strategyContext(cmd)
	store := openStrategyStore()
	if err := store.Delete(ctx, kind); err != nil {
		return fmt.Errorf("deleting %s strategy: %w", kind, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s strategy deleted\n", kind)
	return nil
}

func runStrategyApply(cmd *cobra.Command, kind string) error {
	ctx := strategyContext(cmd)
	store := openStrategyStore()

	tables, err := loadTables(cmd)
	if err != nil {
		return err
	}
	strategy, err := store.Load(ctx, kind, tables)
	if err != nil {
		return fmt.Errorf("loading %s strategy: %w", kind, err)
	}

	stageID, _ := cmd.Flags().GetInt("stage-id")
	flags, _ := ResolveFlags(cmd, nil)
	logger := logging.NewLogger(flags.Verbose)
	driver := platform.NewLogDriver(logger)
	clock := step.NewRealClock()
	controller := stage.NewController(driver, tables, clock, strategy)

	var applyErr error
	if stageID >= 0 {
		applyErr = controller.ApplyStage(&stageID)
	} else {
		applyErr = controller.Apply()
	}
	if applyErr != nil {
		return fmt.Errorf("applying %s strategy: %w", kind, applyErr)
	}

	l := loop.New(controller, clock)
	final := l.Run(ctx)

	if err := store.Save(ctx, strategy); err != nil {
		return fmt.Errorf("saving strategy after apply: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s strategy finished: status=%s reason=%q\n", kind, final, strategy.Reason)
	if final != stage.StatusApplied {
		return fmt.Errorf("%s strategy did not complete successfully: %s", kind, strategy.Reason)
	}
	return nil
}

func runStrategyAbort(cmd *cobra.Command, kind string) error {
	ctx := strategyContext(cmd)
	store := openStrategyStore()

	tables, err := loadTables(cmd)
	if err != nil {
		return err
	}
	strategy, err := store.Load(ctx, kind, tables)
	if err != nil {
		return fmt.Errorf("loading %s strategy: %w", kind, err)
	}

	stageID, _ := cmd.Flags().GetInt("stage-id")
	flags, _ := ResolveFlags(cmd, nil)
	logger := logging.NewLogger(flags.Verbose)
	driver := platform.NewLogDriver(logger)
	clock := step.NewRealClock()
	controller := stage.NewController(driver, tables, clock, strategy)

	var stagePtr *int
	if stageID >= 0 {
		stagePtr = &stageID
	}
	if err := controller.Abort(stagePtr); err != nil {
		return fmt.Errorf("aborting %s strategy: %w", kind, err)
	}

	l := loop.New(controller, clock)
	final := l.Run(ctx)

	if err := store.Save(ctx, strategy); err != nil {
		return fmt.Errorf("saving strategy after abort: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s strategy aborted: status=%s reason=%q\n", kind, final, strategy.Reason)
	return nil
}

func runStrategyShow(cmd *cobra.Command, kind string) error {
	ctx := strategyContext(cmd)
	store := openStrategyStore()

	tables, err := loadTables(cmd)
	if err != nil {
		return err
	}
	strategy, err := store.Load(ctx, kind, tables)
	if err != nil {
		if errors.Is(err, persist.ErrNotFound) {
			return fmt.Errorf("no %s strategy exists", kind)
		}
		return fmt.Errorf("loading %s strategy: %w", kind, err)
	}

	details, _ := cmd.Flags().GetBool("details")
	printStrategy(cmd.OutOrStdout(), strategy, details)
	return nil
}

func printStrategy(out io.Writer, s *stage.Strategy, details bool) {
	_, _ = fmt.Fprintf(out, "kind=%s status=%s stage=%d/%d reason=%q\n", s.Kind, s.Status, s.CurrentStage, len(s.Stages), s.Reason)
	if !details {
		return
	}
	for i, stg := range s.Stages {
		_, _ = fmt.Fprintf(out, "  [%d] %s: result=%s step=%d/%d reason=%q\n", i, stg.Name, stg.Result, stg.Current, len(stg.Steps), stg.Reason)
	}
}

func strategyContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
