package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/models"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/workflow"
	"github.com/shopspring/decimal"
)

// Integration tests run against throwaway MySQL + Redis containers.
// Set INTEGRATION_TESTS=1 (requires docker) to enable them.

func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "agenzie_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	return context.Background()
}

func createTestAgency(t *testing.T, ctx context.Context, stepNames ...string) string {
	t.Helper()
	agency, err := models.CreateAgency(ctx, &models.NewAgency{Name: "Onoranze Funebri Test", City: "Palermo"})
	if err != nil {
		t.Fatalf("CreateAgency: %v", err)
	}
	for i, name := range stepNames {
		_, err := models.CreateTimelineStep(ctx, agency.ID, &models.NewTimelineStep{
			StepName:  name,
			StepOrder: i + 1,
		})
		if err != nil {
			t.Fatalf("CreateTimelineStep %q: %v", name, err)
		}
	}
	return agency.ID
}

func createTestProduct(t *testing.T, agencyId string, name string, cost, sell string) *models.Product {
	t.Helper()
	product := models.Product{
		AgencyId:     agencyId,
		Name:         name,
		ItemType:     "service",
		CostPrice:    mustDec(cost),
		SellingPrice: mustDec(sell),
	}
	if err := config.GetDB().Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return &product
}

func newCaseInput(taxCode string) *workflow.NewFuneralCase {
	death := time.Now().AddDate(0, 0, -2)
	return &workflow.NewFuneralCase{
		Deceased: workflow.NewDeceasedInput{
			FirstName: "Mario",
			LastName:  "Rossi",
			TaxCode:   taxCode,
			DeathDate: death,
		},
		ServiceType: "burial",
	}
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateFuneral_FullScenario(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx,
		"Raccolta documenti", "Preparazione salma", "Organizzazione cerimonia",
		"Trasporto", "Sepoltura")

	coffin := createTestProduct(t, agencyId, "Cofano in rovere", "800", "1200")
	flowers := createTestProduct(t, agencyId, "Composizione floreale", "50", "120")

	input := newCaseInput("RSSMRA50A01G273A")
	input.ProductIds = []int{coffin.ID, flowers.ID}
	input.DocumentTypes = []string{"certificato_morte", "autorizzazione_trasporto"}

	response, err := workflow.CreateFuneral(ctx, agencyId, input)
	if err != nil {
		t.Fatalf("CreateFuneral: %v", err)
	}

	if response.Status != models.FuneralStatusDraft {
		t.Errorf("status = %s, want draft", response.Status)
	}
	if response.Code != "FUN-"+fmt.Sprint(time.Now().Year())+"-001" {
		t.Errorf("unexpected first code %s", response.Code)
	}
	if len(response.Steps) != 5 {
		t.Errorf("steps = %d, want 5", len(response.Steps))
	}
	for _, step := range response.Steps {
		if step.Status != models.TimelineStepStatusPending {
			t.Errorf("step %d created as %s, want pending", step.ID, step.Status)
		}
	}
	if !response.EstimatedTotal.Equal(mustDec("1320")) {
		t.Errorf("estimated total = %s, want 1320", response.EstimatedTotal)
	}

	db := config.GetDB()
	var documents int64
	if err := db.Model(&models.Document{}).
		Where("agency_id = ? AND funeral_id = ? AND status = ?", agencyId, response.CaseId, models.DocumentStatusPending).
		Count(&documents).Error; err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if documents != 2 {
		t.Errorf("pending documents = %d, want 2", documents)
	}

	if _, err := models.GetAgencyById(ctx, agencyId); err != nil {
		t.Fatalf("GetAgencyById: %v", err)
	}
	detail, err := workflow.GetFuneralCase(ctx, agencyId, response.CaseId)
	if err != nil {
		t.Fatalf("GetFuneralCase: %v", err)
	}
	if detail.Funeral.Deceased == nil || detail.Funeral.Deceased.TaxCode != "RSSMRA50A01G273A" {
		t.Error("case detail missing deceased")
	}
	if detail.ActiveQuote == nil || !detail.ActiveQuote.FinalTotal.Equal(mustDec("1320")) {
		t.Error("case detail missing the draft quote")
	}
	if detail.CompletionPercentage != 0 {
		t.Errorf("fresh case completion = %d%%, want 0", detail.CompletionPercentage)
	}

	// Cross-tenant fetch is indistinguishable from a missing case.
	otherAgency := createTestAgency(t, ctx, "Unico passo")
	if _, err := workflow.GetFuneralCase(ctx, otherAgency, response.CaseId); !models.IsNotFound(err) {
		t.Fatalf("cross-tenant case fetch should be not-found, got %v", err)
	}
}

func TestCreateFuneral_ConcurrentCodesAreDistinct(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Unico passo")

	const n = 8
	var wg sync.WaitGroup
	codes := make(chan string, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := newCaseInput(fmt.Sprintf("RSSMRA50A01G2%02dA", i))
			response, err := workflow.CreateFuneral(ctx, agencyId, input)
			if err != nil {
				errs <- err
				return
			}
			codes <- response.Code
		}(i)
	}
	wg.Wait()
	close(codes)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent CreateFuneral: %v", err)
	}

	seen := map[string]bool{}
	for code := range codes {
		if seen[code] {
			t.Fatalf("duplicate code allocated: %s", code)
		}
		seen[code] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct codes, got %d", n, len(seen))
	}
}

func TestNextFuneralCode_PastPadWidth(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Unico passo")
	db := config.GetDB()

	// Seed codes straddling the pad width. 999 sorts above 1000
	// lexicographically, so a plain string max would re-issue 1000.
	year := time.Now().Year()
	for _, seq := range []int{998, 999, 1000} {
		funeral := models.Funeral{
			AgencyId:    agencyId,
			Code:        models.FormatFuneralCode(year, seq),
			Status:      models.FuneralStatusDraft,
			ServiceType: models.CeremonyTypeBurial,
		}
		if err := db.Create(&funeral).Error; err != nil {
			t.Fatalf("seed funeral %d: %v", seq, err)
		}
	}

	code, err := models.NextFuneralCode(db.WithContext(ctx), agencyId, year)
	if err != nil {
		t.Fatalf("NextFuneralCode: %v", err)
	}
	if want := models.FormatFuneralCode(year, 1001); code != want {
		t.Fatalf("next code = %s, want %s", code, want)
	}
}

func TestCreateFuneral_FailureLeavesNoRows(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Unico passo")

	input := newCaseInput("VRDGPP60B02H501B")
	input.ProductIds = []int{99999}

	_, err := workflow.CreateFuneral(ctx, agencyId, input)
	if err == nil {
		t.Fatal("expected failure for unknown product")
	}
	if !models.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	db := config.GetDB()
	var funerals, deceased int64
	db.Model(&models.Funeral{}).Where("agency_id = ?", agencyId).Count(&funerals)
	db.Model(&models.Deceased{}).Where("agency_id = ?", agencyId).Count(&deceased)
	if funerals != 0 || deceased != 0 {
		t.Errorf("rollback left rows behind: funerals=%d deceased=%d", funerals, deceased)
	}
}

func TestCreateFuneral_DuplicateOpenCaseRejected(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Unico passo")

	if _, err := workflow.CreateFuneral(ctx, agencyId, newCaseInput("BNCLGU45C03F205C")); err != nil {
		t.Fatalf("first case: %v", err)
	}
	// Same code in a different casing is still the same person.
	_, err := workflow.CreateFuneral(ctx, agencyId, newCaseInput("bnclgu45c03f205c"))
	if err == nil {
		t.Fatal("expected duplicate rejection for same tax code")
	}
	if !models.IsDuplicate(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestCreateFuneral_NoTemplatesRejected(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx) // no templates

	_, err := workflow.CreateFuneral(ctx, agencyId, newCaseInput("GLLNNA30D44L219D"))
	if err == nil {
		t.Fatal("expected configuration error without templates")
	}
	if models.ErrorCode(err) != models.CodeConfiguration {
		t.Fatalf("expected CONFIGURATION, got %s (%v)", models.ErrorCode(err), err)
	}
}

func TestRegisterCemeteryDeath_PerpetualAndCapacity(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Unico passo")
	db := config.GetDB()

	cemetery := models.Cemetery{AgencyId: agencyId, Name: "Cimitero dei Rotoli", City: "Palermo"}
	if err := db.Create(&cemetery).Error; err != nil {
		t.Fatalf("create cemetery: %v", err)
	}
	grave := models.Grave{
		CemeteryId:  cemetery.ID,
		GraveNumber: "A-12",
		GraveType:   "loculo",
		Status:      models.GraveStatusAvailable,
		MaxBurials:  1,
	}
	if err := db.Create(&grave).Error; err != nil {
		t.Fatalf("create grave: %v", err)
	}

	first, err := workflow.CreateFuneral(ctx, agencyId, newCaseInput("RSSMRA50A01G273A"))
	if err != nil {
		t.Fatalf("first case: %v", err)
	}

	response, err := workflow.RegisterCemeteryDeath(ctx, agencyId, &workflow.NewCemeteryRegistration{
		FuneralId:          first.CaseId,
		GraveId:            grave.ID,
		IntermentDate:      time.Now(),
		ConcessionYears:    99,
		RegistrationNumber: "REG-2026-0001",
	})
	if err != nil {
		t.Fatalf("RegisterCemeteryDeath: %v", err)
	}
	if response.ConcessionExpiresAt != "Perpetual" {
		t.Errorf("expires = %q, want Perpetual", response.ConcessionExpiresAt)
	}
	if response.DeceasedName != "Mario Rossi" {
		t.Errorf("deceased name = %q", response.DeceasedName)
	}

	var updated models.Grave
	if err := db.First(&updated, grave.ID).Error; err != nil {
		t.Fatalf("reload grave: %v", err)
	}
	if updated.Status != models.GraveStatusOccupied || updated.CurrentBurials != 1 {
		t.Errorf("grave not occupied after placement: status=%s burials=%d", updated.Status, updated.CurrentBurials)
	}

	// The register index rejects the number on another grave even when
	// the application-level check is bypassed.
	other := models.Grave{
		CemeteryId:  cemetery.ID,
		GraveNumber: "A-13",
		GraveType:   "loculo",
		Status:      models.GraveStatusAvailable,
		MaxBurials:  1,
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create second grave: %v", err)
	}
	err = db.Model(&models.Grave{}).Where("id = ?", other.ID).
		Update("registration_number", "REG-2026-0001").Error
	if err == nil {
		t.Fatal("expected duplicate registration number to be rejected by the unique index")
	}

	second, err := workflow.CreateFuneral(ctx, agencyId, newCaseInput("VRDGPP60B02H501B"))
	if err != nil {
		t.Fatalf("second case: %v", err)
	}
	_, err = workflow.RegisterCemeteryDeath(ctx, agencyId, &workflow.NewCemeteryRegistration{
		FuneralId:          second.CaseId,
		GraveId:            grave.ID,
		IntermentDate:      time.Now(),
		ConcessionYears:    10,
		RegistrationNumber: "REG-2026-0002",
	})
	if err == nil {
		t.Fatal("expected second placement on a full grave to fail")
	}
	if !models.IsPolicyViolation(err) {
		t.Fatalf("expected policy violation, got %v", err)
	}
}

func TestAcceptQuote_NegativeMarginBlocked(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Unico passo")
	db := config.GetDB()

	settings := models.MarginSettings{
		AgencyId:                    agencyId,
		MinimumMarginPercentage:     mustDec("30"),
		WarningMarginPercentage:     mustDec("20"),
		CriticalMarginPercentage:    mustDec("10"),
		AlertEnabled:                true,
		BlockNegativeMargin:         true,
		RequireApprovalForLowMargin: true,
	}
	if err := db.Create(&settings).Error; err != nil {
		t.Fatalf("create margin settings: %v", err)
	}

	losing := createTestProduct(t, agencyId, "Servizio sottocosto", "1000", "800")
	input := newCaseInput("RSSMRA50A01G273A")
	input.ProductIds = []int{losing.ID}

	response, err := workflow.CreateFuneral(ctx, agencyId, input)
	if err != nil {
		t.Fatalf("CreateFuneral: %v", err)
	}

	var quote models.Quote
	if err := db.Where("agency_id = ? AND funeral_id = ?", agencyId, response.CaseId).First(&quote).Error; err != nil {
		t.Fatalf("load quote: %v", err)
	}

	_, err = workflow.AcceptQuote(ctx, agencyId, quote.ID)
	if err == nil {
		t.Fatal("expected acceptance of a losing quote to be blocked")
	}
	if !models.IsPolicyViolation(err) {
		t.Fatalf("expected policy violation, got %v", err)
	}
}

func TestCompleteTimelineStep_ReportsProgress(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	agencyId := createTestAgency(t, ctx, "Raccolta documenti", "Sepoltura")

	response, err := workflow.CreateFuneral(ctx, agencyId, newCaseInput("RSSMRA50A01G273A"))
	if err != nil {
		t.Fatalf("CreateFuneral: %v", err)
	}
	if len(response.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(response.Steps))
	}

	step, err := workflow.CompleteTimelineStep(ctx, agencyId, response.Steps[0].ID, "fatto")
	if err != nil {
		t.Fatalf("CompleteTimelineStep: %v", err)
	}
	if step.Status != models.TimelineStepStatusCompleted {
		t.Errorf("status = %s, want completed", step.Status)
	}
	if step.StartedAt == nil || step.CompletedAt == nil {
		t.Error("completed step must carry both timestamps")
	}
	if step.CompletionPercentage != 50 {
		t.Errorf("completion = %d%%, want 50", step.CompletionPercentage)
	}

	if _, err := workflow.CompleteTimelineStep(ctx, agencyId, response.Steps[0].ID, ""); err == nil {
		t.Error("completing twice should fail")
	}

	// Another tenant cannot see this step.
	otherAgency := createTestAgency(t, ctx, "Unico passo")
	_, err = workflow.CompleteTimelineStep(ctx, otherAgency, response.Steps[1].ID, "")
	if !models.IsNotFound(err) {
		t.Fatalf("cross-tenant step access should be not-found, got %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("agenzie-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("agenzie-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=agenzie_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
