package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/metrics"
	"github.com/annel0/voxelcore/internal/storage"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/annel0/voxelcore/internal/world"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или VOXELCORE_CONFIG)")
	radius := flag.Int("radius", 4, "радиус генерации в чанках вокруг начала координат")
	height := flag.Int("height", 4, "число слоёв чанков по вертикали")
	serve := flag.Bool("serve", false, "после генерации отдавать метрики и ждать сигнала")
	flag.Parse()

	if err := logging.InitDefaultLogger("worldgen"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// === МЕТРИКИ ===
	collector := metrics.NewCollector()
	procStats, err := metrics.NewProcessStats()
	if err != nil {
		logging.Warn("Статистика процесса недоступна: %v", err)
	} else if err := collector.RegisterProcessGauges(procStats); err != nil {
		logging.Warn("Не удалось зарегистрировать метрики процесса: %v", err)
	}

	// === ХРАНИЛИЩА ===
	store, err := world.NewChunkStore(cfg.Memory.GetChunkCapacity(), cfg.Memory.GetInitialBitWidth(), collector)
	if err != nil {
		log.Fatalf("❌ Ошибка создания хранилища чанков: %v", err)
	}

	var worldID uuid.UUID
	if raw := cfg.Storage.GetWorldID(); raw != "" {
		worldID, err = uuid.Parse(raw)
		if err != nil {
			log.Fatalf("❌ Некорректный world_id %q: %v", raw, err)
		}
	}

	ws, err := storage.NewWorldStorage(cfg.Storage.GetDataPath(), storage.Options{
		WorldID: worldID,
		UseZstd: cfg.Storage.GetUseZstd(),
	})
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища мира: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища мира: %v", err)
	}
	defer ws.Close()

	slog := logging.GetStorageLogger()
	if stored, err := ws.CountChunks(); err == nil {
		slog.Info("💾 Хранилище %s: %d сохранённых чанков", cfg.Storage.GetDataPath(), stored)
	}

	logging.Info("🌍 Мир %s: радиус=%d, высота=%d, сид=%d", ws.WorldID(), *radius, *height, cfg.Generator.GetSeed())

	// === ГЕНЕРАЦИЯ ===
	wlog := logging.GetWorldLogger()
	defer logging.GetLoggerManager().CloseAll()

	gen := world.NewWorldGenerator(cfg.Generator.GetSeed(), cfg.Generator.GetSeaLevel())
	generated := 0
	for x := -*radius; x <= *radius; x++ {
		for z := -*radius; z <= *radius; z++ {
			for y := 0; y < *height; y++ {
				coords := vec.Vec3{X: x, Y: y, Z: z}

				loaded, err := ws.LoadInto(store, coords)
				if err != nil {
					wlog.Warn("Снимок чанка %v не загружен: %v", coords, err)
				}
				if loaded {
					wlog.Trace("Чанк %v загружен из хранилища", coords)
					continue
				}

				if _, err := gen.GenerateChunk(store, coords); err != nil {
					wlog.Error("❌ Ошибка генерации чанка %v: %v", coords, err)
					log.Fatalf("❌ Ошибка генерации чанка %v: %v", coords, err)
				}
				generated++
			}
		}
	}

	saved, err := ws.SaveStore(store)
	if err != nil {
		slog.Error("❌ Ошибка сохранения мира: %v", err)
		log.Fatalf("❌ Ошибка сохранения мира: %v", err)
	}

	logging.Info("✅ Сгенерировано %d чанков, загружено %d, сохранено %d", generated, store.Len()-generated, saved)
	logging.Info("   📦 Упакованные блоки: %d байт в %d чанках (ёмкость пула %d)", store.MemoryBytes(), store.Len(), store.Cap())
	if procStats != nil {
		rss, err := procStats.GetRSSBytes()
		if err != nil {
			logging.Warn("RSS недоступен: %v", err)
		}
		logging.Info("   🧠 RSS=%d байт, heap=%.2f MB, время работы %v", rss, procStats.GetHeapAllocMB(), procStats.GetUptime())
	}

	if !*serve {
		return
	}

	addr := cfg.Metrics.GetAddr()
	if addr == "" {
		addr = ":9100"
	}
	collector.StartHTTP(addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logging.Debug("Ожидание сигналов завершения...")
	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
}
