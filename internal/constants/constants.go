package constants

// internal units: cm, MeV, us, kV, g/cm^3

const EField float64 = 0.50              // [kV/cm]
const LArDensity float64 = 1.38          // [g/cm^3]
const WIon float64 = 23.6e-6             // [MeV]
const WPh float64 = 19.5e-6              // [MeV]
const ScintPrescale float64 = 1.         // photons produced per photon kept
const BoxAlpha float64 = 0.93            // Baller, 2013 JINST 8 P08005
const BoxBeta float64 = 0.207            // [(kV/cm)(g/cm^2)/MeV]
const BirksAb float64 = 0.800            // Amoruso, et al NIM A 523 (2004) 275
const BirksKb float64 = 0.0486           // [(kV/cm)(g/cm^2)/MeV]
const VDrift float64 = 0.1648            // [cm/us]
const ElectronLifetime float64 = 2.2e3   // [us]
const DefaultPlaneIndex int = 0x0FFFFFFF // no plane found
const PlaneTolerance float64 = 2e-2      // [cm]
const Quantile95 = 1.96
