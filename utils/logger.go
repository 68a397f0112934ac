package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

func init() {
	// Logger selalu siap dipakai, termasuk di test yang tidak memanggil InitLogger
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()
}

func InitLogger() {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	// Set output untuk InfoLogger ke stdout
	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Set output untuk ErrorLogger ke stderr
	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Info logger juga menampung warning (recipe kosong, stok rendah, reset meja)
	InfoLogger.SetLevel(logrus.InfoLevel)
	ErrorLogger.SetLevel(logrus.ErrorLevel)
}

// SilenceLoggers dipakai di test supaya output tidak ramai
func SilenceLoggers() {
	InfoLogger.SetOutput(io.Discard)
	ErrorLogger.SetOutput(io.Discard)
}

// WithRestaurant -> entry dengan field restaurant_id
func WithRestaurant(restaurantID uint) *logrus.Entry {
	return InfoLogger.WithField("restaurant_id", restaurantID)
}
